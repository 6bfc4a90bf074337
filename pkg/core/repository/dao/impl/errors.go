package impl

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	errs "tour-booking/pkg/common/errors"
	"tour-booking/pkg/core/repository/dao"
)

// Duplicate entry 'The Forest Hiker' for key 'tours.idx_tours_name'
var duplicateEntry = regexp.MustCompile(`Duplicate entry '(.*)' for key`)

// wrapGormError 把驱动错误归类为存储层错误
func wrapGormError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dao.ErrNotFound
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1062:
			value := ""
			if m := duplicateEntry.FindStringSubmatch(mysqlErr.Message); m != nil {
				value = strconv.Quote(m[1])
			}
			return &errs.DuplicateKeyError{Value: value, Err: err}
		case 1048, 1044, 1146: // Common MySQL operation errors
			return fmt.Errorf("%w: %v", dao.ErrDatabaseInternal, err)
		}
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &errs.DuplicateKeyError{Err: err}
	}

	if errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrUnsupportedRelation) {
		return fmt.Errorf("%w: %v", dao.ErrDatabaseInternal, err)
	}

	return err
}
