// Package category maps category display names and legacy blend types to
// stable internal keys.
package category

import (
	"regexp"
	"strings"

	"github.com/m-sorano/ai-cafe/internal/models"
)

// Internal category keys.
const (
	Beginner     = "beginner"
	UseCase      = "usecase"
	Tools        = "tools"
	Consultation = "consultation"
	Expert       = "expert"
	Free         = "free"

	// All is the filter value that matches every post.
	All = "all"
	// OtherLabel is shown for posts whose category cannot be resolved.
	OtherLabel = "その他"
)

type fragment struct {
	label string
	key   string
}

// Order matters: the first fragment contained in the label wins.
var fragments = []fragment{
	{"初心者向け", Beginner},
	{"活用事例", UseCase},
	{"ツール・サービス", Tools},
	{"悩み相談", Consultation},
	{"専門家向け", Expert},
	{"雑談・交流", Free},
}

var labelRe = regexp.MustCompile(`\[([^\]]+)\]`)

var legacyKeys = map[string]string{
	"AI相談":       Consultation,
	"latte":      Beginner,
	"cappuccino": UseCase,
	"mocha":      Expert,
	"espresso":   Tools,
	"americano":  Free,
}

var defaults = []models.Category{
	{Name: "[初心者向け] AIはじめの一歩", Description: "AIとは？、用語解説、おすすめ学習方法、質問広場", IconURL: "beginner.png"},
	{Name: "[活用事例] みんなのAI活用術", Description: "業務効率化、アイデア創出、エンタメ、各業界での活用事例", IconURL: "usecase.png"},
	{Name: "[ツール・サービス] AIツールレビュー", Description: "ChatGPT, Stable Diffusion, 各種AIツールの比較・レビュー、おすすめツール紹介", IconURL: "tools.png"},
	{Name: "[悩み相談] AIなんでも相談室", Description: "導入の壁、倫理的な課題、キャリア相談、その他AIに関する悩み", IconURL: "consultation.png"},
	{Name: "[専門家向け] AI技術深掘り", Description: "最新研究動向、技術議論、論文紹介、開発 tips", IconURL: "expert.png"},
	{Name: "[雑談・交流] AIフリートーク", Description: "自己紹介、雑談、イベント告知、交流", IconURL: "free.png"},
}

// Defaults returns the seed categories without ids.
func Defaults() []models.Category {
	out := make([]models.Category, len(defaults))
	copy(out, defaults)
	return out
}

// Label extracts the bracketed label from a display name such as
// "[初心者向け] AIはじめの一歩". It returns "" when there is no bracketed label.
func Label(name string) string {
	m := labelRe.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// Key returns the internal key for a category display name, or "" if the
// label matches no known fragment.
func Key(name string) string {
	label := Label(name)
	if label == "" {
		return ""
	}
	for _, f := range fragments {
		if strings.Contains(label, f.label) {
			return f.key
		}
	}
	return ""
}

// LegacyKey maps a legacy blend_type value to an internal key.
func LegacyKey(blendType string) string {
	return legacyKeys[blendType]
}

// LegacyLabel maps a legacy blend_type value to the display name of the
// matching seed category, or OtherLabel.
func LegacyLabel(blendType string) string {
	key := LegacyKey(blendType)
	if key == "" {
		return OtherLabel
	}
	for _, c := range defaults {
		if Key(c.Name) == key {
			return c.Name
		}
	}
	return OtherLabel
}

// Resolver answers key/label questions for a fixed set of category rows.
type Resolver struct {
	byID  map[string]models.Category
	idFor map[string]string
}

// NewResolver builds a resolver. When two rows map to the same key the later
// row wins.
func NewResolver(categories []*models.Category) *Resolver {
	r := &Resolver{
		byID:  make(map[string]models.Category, len(categories)),
		idFor: make(map[string]string, len(categories)),
	}
	for _, c := range categories {
		if c == nil {
			continue
		}
		r.byID[c.ID] = *c
		if key := Key(c.Name); key != "" {
			r.idFor[key] = c.ID
		}
	}
	return r
}

// KeyFor returns the key of the category with the given id.
func (r *Resolver) KeyFor(id string) string {
	c, ok := r.byID[id]
	if !ok {
		return ""
	}
	return Key(c.Name)
}

// IDFor returns the category id mapped to key.
func (r *Resolver) IDFor(key string) (string, bool) {
	id, ok := r.idFor[key]
	return id, ok
}

// Exists reports whether a category with the given id is known.
func (r *Resolver) Exists(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// PostKey returns the key of a post: from its category reference, or from
// its legacy blend type when the reference is absent.
func (r *Resolver) PostKey(p *models.Post) string {
	if p.Category != nil && *p.Category != "" {
		return r.KeyFor(*p.Category)
	}
	if p.BlendType != nil {
		return LegacyKey(*p.BlendType)
	}
	return ""
}

// PostLabel returns the display label of a post's category.
func (r *Resolver) PostLabel(p *models.Post) string {
	if p.Category != nil && *p.Category != "" {
		if c, ok := r.byID[*p.Category]; ok {
			return c.Name
		}
		// Rows written before the category table existed carry a blend
		// value in the category column.
		return LegacyLabel(*p.Category)
	}
	if p.BlendType != nil {
		return LegacyLabel(*p.BlendType)
	}
	return OtherLabel
}

// Matches reports whether a post belongs to the category identified by key.
// The legacy blend type is consulted only when the post has no category.
func (r *Resolver) Matches(p *models.Post, key string) bool {
	if key == "" || key == All {
		return true
	}
	if p.Category != nil && *p.Category != "" {
		id, ok := r.idFor[key]
		return ok && *p.Category == id
	}
	if p.BlendType != nil && *p.BlendType != "" {
		return LegacyKey(*p.BlendType) == key
	}
	return false
}
