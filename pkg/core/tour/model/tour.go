package model

import (
	"database/sql/driver"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tour-booking/pkg/common/document"
	errs "tour-booking/pkg/common/errors"
	reviewmodel "tour-booking/pkg/core/review/model"
	usermodel "tour-booking/pkg/core/user/model"
)

const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"

	PointType = "Point"

	minNameLength = 10
	maxNameLength = 40
)

// Location GeoJSON 点，坐标顺序为 [lng, lat]
type Location struct {
	Type        string    `gorm:"type:varchar(10)" json:"type,omitempty"`
	Coordinates []float64 `gorm:"type:json;serializer:json" json:"coordinates,omitempty"`
	Address     string    `gorm:"type:varchar(255)" json:"address,omitempty"`
	Description string    `gorm:"type:varchar(255)" json:"description,omitempty"`
	Day         int       `json:"day,omitempty"`
}

// LngLat 坐标不完整时 ok 为 false
func (l Location) LngLat() (lng, lat float64, ok bool) {
	if len(l.Coordinates) < 2 {
		return 0, 0, false
	}
	return l.Coordinates[0], l.Coordinates[1], true
}

type Tour struct {
	document.Base
	Name            string      `gorm:"type:varchar(40);uniqueIndex;not null" json:"name"`
	Slug            string      `gorm:"type:varchar(64);index" json:"slug"`
	Duration        float64     `gorm:"not null" json:"duration"`
	MaxGroupSize    int         `gorm:"not null" json:"maxGroupSize"`
	Difficulty      string      `gorm:"type:varchar(16);not null" json:"difficulty"`
	RatingsAverage  float64     `gorm:"index:idx_tours_price_rating,priority:2,sort:desc;default:4.5" json:"ratingsAverage"`
	RatingsQuantity int         `gorm:"default:0" json:"ratingsQuantity"`
	Price           float64     `gorm:"index:idx_tours_price_rating,priority:1;not null" json:"price"`
	PriceDiscount   *float64    `json:"priceDiscount,omitempty"`
	Summary         string      `gorm:"type:varchar(255)" json:"summary"`
	Description     string      `gorm:"type:text" json:"description,omitempty"`
	ImageCover      string      `gorm:"type:varchar(255);not null" json:"imageCover"`
	Images          []string    `gorm:"type:json;serializer:json" json:"images"`
	StartDates      []time.Time `gorm:"type:json;serializer:json" json:"startDates"`
	SecretTour      bool        `gorm:"default:false;index" json:"secretTour"`
	StartLocation   Location    `gorm:"embedded;embeddedPrefix:start_location_" json:"startLocation"`
	Locations       []Location  `gorm:"type:json;serializer:json" json:"locations"`
	Guides          GuideRefs   `gorm:"type:json" json:"guides"`

	// 仅在查询单个项目时展开，不落库
	Reviews []reviewmodel.Review `gorm:"-" json:"reviews,omitempty"`
}

// TableName 定义映射表名
func (Tour) TableName() string {
	return "tours"
}

func AutoMigrate(db *gorm.DB) error {
	return db.Set("gorm:table_options", "COMMENT='旅游项目表'").
		AutoMigrate(&Tour{})
}

// VisibleScope 秘密项目对所有查询不可见
func VisibleScope(db *gorm.DB) *gorm.DB {
	return db.Where(clause.Neq{Column: clause.Column{Name: "secret_tour"}, Value: true})
}

func IsVisible(t *Tour) bool { return !t.SecretTour }

// DurationWeeks 虚拟字段，不落库
func (t *Tour) DurationWeeks() float64 {
	return t.Duration / 7
}

// ReadOnlyKeys 评价与虚拟字段只在查询时生成
func (*Tour) ReadOnlyKeys() []string {
	return []string{"reviews", "durationWeeks"}
}

func (t Tour) MarshalJSON() ([]byte, error) {
	type plain Tour
	return sonic.Marshal(struct {
		plain
		DurationWeeks float64 `json:"durationWeeks"`
	}{plain(t), t.DurationWeeks()})
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify "The Forest Hiker" -> "the-forest-hiker"
func Slugify(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func (t *Tour) Prepare() {
	t.Name = strings.TrimSpace(t.Name)
	t.Summary = strings.TrimSpace(t.Summary)
	t.Description = strings.TrimSpace(t.Description)
	t.Slug = Slugify(t.Name)

	if t.RatingsAverage == 0 {
		t.RatingsAverage = reviewmodel.DefaultRatingsAverage
	}
	// 4.666666 -> 4.7
	t.RatingsAverage = math.Round(t.RatingsAverage*10) / 10

	if len(t.StartLocation.Coordinates) > 0 && t.StartLocation.Type == "" {
		t.StartLocation.Type = PointType
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = PointType
		}
	}
}

func (t *Tour) Validate() error {
	v := &errs.ValidationError{}
	switch n := len([]rune(t.Name)); {
	case n == 0:
		v.Add("name", "A tour must have a name")
	case n > maxNameLength:
		v.Add("name", fmt.Sprintf("A tour name must have less or equal than %d characters", maxNameLength))
	case n < minNameLength:
		v.Add("name", fmt.Sprintf("A tour name must have more or equal than %d characters", minNameLength))
	}
	if t.Duration <= 0 {
		v.Add("duration", "A tour must have a duration")
	}
	if t.MaxGroupSize <= 0 {
		v.Add("maxGroupSize", "A tour must have a group size")
	}
	switch t.Difficulty {
	case "":
		v.Add("difficulty", "A tour must have a difficulty")
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
	default:
		v.Add("difficulty", "Difficulty is either: easy, medium, difficult")
	}
	if t.RatingsAverage < 1 {
		v.Add("ratingsAverage", "Rating must be above 1.0")
	}
	if t.RatingsAverage > 5 {
		v.Add("ratingsAverage", "Rating must be below 5.0")
	}
	if t.Price <= 0 {
		v.Add("price", "A tour must have a price")
	}
	if t.PriceDiscount != nil && *t.PriceDiscount >= t.Price {
		v.Add("priceDiscount", fmt.Sprintf("Discount price (%v) must be lower than regular price", *t.PriceDiscount))
	}
	if t.ImageCover == "" {
		v.Add("imageCover", "A tour must have a cover image")
	}
	if t.StartLocation.Type != "" && t.StartLocation.Type != PointType {
		v.Add("startLocation.type", "Location type must be Point")
	}
	for i, l := range t.Locations {
		if l.Type != PointType {
			v.Add(fmt.Sprintf("locations.%d.type", i), "Location type must be Point")
		}
	}
	for _, g := range t.Guides {
		if !document.ValidID(g.ID) {
			v.Add("guides", "Invalid guide: "+g.ID)
		}
	}
	return v.ErrOrNil()
}

// GuideRef 导游引用：库里只存标识符，查询后展开为用户资料
type GuideRef struct {
	ID      string
	Profile *usermodel.Profile
}

func (g GuideRef) MarshalJSON() ([]byte, error) {
	if g.Profile != nil {
		return sonic.Marshal(g.Profile)
	}
	return sonic.Marshal(g.ID)
}

// UnmarshalJSON 接受标识符字符串或带 id 的对象
func (g *GuideRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := sonic.Unmarshal(data, &id); err == nil {
		*g = GuideRef{ID: id}
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := sonic.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("guide must be an id: %w", err)
	}
	*g = GuideRef{ID: obj.ID}
	return nil
}

type GuideRefs []GuideRef

func (g GuideRefs) IDs() []string {
	ids := make([]string, 0, len(g))
	for _, ref := range g {
		ids = append(ids, ref.ID)
	}
	return ids
}

// Value 以 json 数组形式存储标识符
func (g GuideRefs) Value() (driver.Value, error) {
	data, err := sonic.Marshal(g.IDs())
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (g *GuideRefs) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*g = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported guides column type %T", src)
	}

	var ids []string
	if err := sonic.Unmarshal(data, &ids); err != nil {
		return err
	}
	refs := make(GuideRefs, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, GuideRef{ID: id})
	}
	*g = refs
	return nil
}
