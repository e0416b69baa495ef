// Package ruleset loads the campaign configuration: declarative YAML
// documents compiled into campaigns once at process start.
package ruleset

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidRuleset wraps every parse, validation and compile failure.
var ErrInvalidRuleset = errors.New("ruleset: invalid")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Document is the top level of a ruleset file. Named selectors can be
// referenced from anywhere with {ref: name}.
type Document struct {
	Selectors map[string]SelectorSpec `yaml:"selectors"`
	Campaigns []CampaignSpec          `yaml:"campaigns" validate:"required,min=1,dive"`
}

// SelectorSpec describes one selector node. Exactly one field is set.
type SelectorSpec struct {
	Ref               string            `yaml:"ref,omitempty"`
	ProductIDs        []int64           `yaml:"product_ids,omitempty"`
	ExcludeProductIDs []int64           `yaml:"exclude_product_ids,omitempty"`
	Tags              *TagSpec          `yaml:"tags,omitempty"`
	MinPrice          string            `yaml:"min_price,omitempty"` // amount, or "default"
	Properties        map[string]string `yaml:"properties,omitempty"`
	Discounted        *bool             `yaml:"discounted,omitempty"`
	Vendor            string            `yaml:"vendor,omitempty"`
	ProductType       string            `yaml:"product_type,omitempty"`
	GiftCard          *bool             `yaml:"gift_card,omitempty"`
	And               []SelectorSpec    `yaml:"and,omitempty"`
	Or                []SelectorSpec    `yaml:"or,omitempty"`
	Not               *SelectorSpec     `yaml:"not,omitempty"`
}

// TagSpec configures a tag selector.
type TagSpec struct {
	Mode   string   `yaml:"mode"`
	Invert bool     `yaml:"invert"`
	Values []string `yaml:"values"`
}

// QualifierSpec describes one qualifier node. Exactly one field is set.
type QualifierSpec struct {
	CartQuantity     *CartQuantitySpec `yaml:"cart_quantity,omitempty"`
	CartHasItem      *CartHasItemSpec  `yaml:"cart_has_item,omitempty"`
	CartAmount       *CartAmountSpec   `yaml:"cart_amount,omitempty"`
	LineItems        *LineItemsSpec    `yaml:"line_items,omitempty"`
	DiscountCodeGate *CodeGateSpec     `yaml:"discount_code_gate,omitempty"`
	CustomerTag      *CustomerTagSpec  `yaml:"customer_tag,omitempty"`
	And              []QualifierSpec   `yaml:"and,omitempty"`
	Or               []QualifierSpec   `yaml:"or,omitempty"`
	Not              *QualifierSpec    `yaml:"not,omitempty"`
}

// CartQuantitySpec compares quantities using the campaign's selector.
type CartQuantitySpec struct {
	Method     string `yaml:"method"`
	Comparison string `yaml:"comparison"`
	Quantity   int    `yaml:"quantity"`
}

// CartHasItemSpec compares the quantity or subtotal of lines matching Selector.
// Amount is a unit count for quantity and a major-unit amount for subtotal.
type CartHasItemSpec struct {
	Measure    string        `yaml:"measure"`
	Comparison string        `yaml:"comparison"`
	Amount     string        `yaml:"amount"`
	Selector   *SelectorSpec `yaml:"selector"`
}

// CartAmountSpec compares the current total of lines matching Selector (all
// lines when omitted).
type CartAmountSpec struct {
	Comparison string        `yaml:"comparison"`
	Amount     string        `yaml:"amount"`
	Selector   *SelectorSpec `yaml:"selector,omitempty"`
}

// LineItemsSpec requires any or all lines to match Selector.
type LineItemsSpec struct {
	Mode     string        `yaml:"mode"`
	Selector *SelectorSpec `yaml:"selector"`
}

// CodeGateSpec configures a discount code gate. Enabled defaults to true.
type CodeGateSpec struct {
	Enabled        *bool    `yaml:"enabled,omitempty"`
	Message        string   `yaml:"message,omitempty"`
	Policy         string   `yaml:"policy"`
	Codes          []string `yaml:"codes"`
	MobileProperty string   `yaml:"mobile_property,omitempty"`
	MobileValue    string   `yaml:"mobile_value,omitempty"`
}

// CustomerTagSpec matches customers carrying any of Tags.
type CustomerTagSpec struct {
	Tags   []string `yaml:"tags"`
	Invert bool     `yaml:"invert"`
}

// DiscountSpec configures a discount. Amounts are major units, Percent is 0-100.
type DiscountSpec struct {
	Type      string         `yaml:"type" validate:"required,oneof=percentage fixed_total fixed_item fixed_final_price"`
	Message   string         `yaml:"message"`
	Percent   string         `yaml:"percent,omitempty"`
	Amount    string         `yaml:"amount,omitempty"`
	Mode      string         `yaml:"mode,omitempty" validate:"omitempty,oneof=to_zero split"`
	Price     string         `yaml:"price,omitempty"`
	Overrides []OverrideSpec `yaml:"overrides,omitempty"`
}

// OverrideSpec sets a different final price for matching lines.
type OverrideSpec struct {
	Price    string       `yaml:"price"`
	Selector SelectorSpec `yaml:"selector"`
}

// CodeSpec is one entry of a discount code list.
type CodeSpec struct {
	Code   string `yaml:"code" validate:"required"`
	Type   string `yaml:"type" validate:"required"`
	Amount string `yaml:"amount"`
}

// ComponentSpec is one part of a bundle.
type ComponentSpec struct {
	Quantity int          `yaml:"quantity" validate:"gt=0"`
	Selector SelectorSpec `yaml:"selector"`
}

// TierSpec is one spend tier.
type TierSpec struct {
	Threshold string       `yaml:"threshold" validate:"required"`
	Discount  DiscountSpec `yaml:"discount"`
}

// CampaignSpec configures a campaign. Which fields apply depends on Type.
type CampaignSpec struct {
	Name          string          `yaml:"name" validate:"required"`
	Type          string          `yaml:"type" validate:"required,oneof=discount_code_list conditional buy_x_get_x bundle price_test code_prefix_free tiered_spend"`
	Disabled      bool            `yaml:"disabled,omitempty"`
	Condition     string          `yaml:"condition,omitempty" validate:"omitempty,oneof=all any"`
	Qualifiers    []QualifierSpec `yaml:"qualifiers,omitempty"`
	PostCondition *QualifierSpec  `yaml:"post_condition,omitempty"`
	Selector      *SelectorSpec   `yaml:"selector,omitempty"`
	Discount      *DiscountSpec   `yaml:"discount,omitempty"`

	Codes      []CodeSpec      `yaml:"codes,omitempty" validate:"dive"`
	MaxUnits   int             `yaml:"max_units,omitempty" validate:"gte=0"`
	Buy        *SelectorSpec   `yaml:"buy,omitempty"`
	BuyX       int             `yaml:"buy_x,omitempty" validate:"gte=0"`
	Get        *SelectorSpec   `yaml:"get,omitempty"`
	GetX       int             `yaml:"get_x,omitempty" validate:"gte=0"`
	MaxSets    int             `yaml:"max_sets,omitempty" validate:"gte=0"`
	Components []ComponentSpec `yaml:"components,omitempty" validate:"dive"`

	PriceProperty string `yaml:"price_property,omitempty"`
	AllowFree     bool   `yaml:"allow_free,omitempty"`

	Prefix  string `yaml:"prefix,omitempty"`
	Message string `yaml:"message,omitempty"`

	Code  string     `yaml:"code,omitempty"`
	Tiers []TierSpec `yaml:"tiers,omitempty" validate:"dive"`
}

// Parse decodes and validates a ruleset document. Unknown fields are rejected.
func Parse(data []byte) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("%w: decode: %v", ErrInvalidRuleset, err)
	}
	if err := validate.Struct(doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidRuleset, err)
	}
	seen := make(map[string]struct{}, len(doc.Campaigns))
	for _, c := range doc.Campaigns {
		if _, dup := seen[c.Name]; dup {
			return Document{}, fmt.Errorf("%w: duplicate campaign name %q", ErrInvalidRuleset, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return doc, nil
}
