package cart

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/toko-promo/internal/pricing"
)

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Input is the checkout cart as sent by the storefront. The upper bounds on
// price, quantity and line count keep all price arithmetic on the cart inside
// int64 cents.
type Input struct {
	LineItems    []LineItemInput    `json:"lineItems" validate:"required,min=1,max=250,dive"`
	DiscountCode *DiscountCodeInput `json:"discountCode,omitempty"`
	Customer     *CustomerInput     `json:"customer,omitempty"`
}

// LineItemInput describes one cart line.
type LineItemInput struct {
	ID          string            `json:"id,omitempty" validate:"omitempty,uuid"`
	VariantID   int64             `json:"variantId" validate:"required"`
	ProductID   int64             `json:"productId" validate:"required"`
	Title       string            `json:"title,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Vendor      string            `json:"vendor,omitempty"`
	ProductType string            `json:"productType,omitempty"`
	GiftCard    bool              `json:"giftCard,omitempty"`
	Price       pricing.Money     `json:"price" validate:"gte=0,lte=100000000"`
	Quantity    int               `json:"quantity" validate:"required,gt=0,lte=10000"`
	LinePrice   *pricing.Money    `json:"linePrice,omitempty" validate:"omitempty,gte=0,lte=1000000000000"`
	Discounted  bool              `json:"discounted,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// DiscountCodeInput is the code entered by the customer.
type DiscountCodeInput struct {
	Code string   `json:"code" validate:"required"`
	Kind CodeKind `json:"kind,omitempty" validate:"omitempty,oneof=percentage fixed_amount shipping"`
}

// CustomerInput identifies the buyer.
type CustomerInput struct {
	ID    int64    `json:"id,omitempty"`
	Email string   `json:"email,omitempty" validate:"omitempty,email"`
	Tags  []string `json:"tags,omitempty"`
}

// Build validates the payload and constructs a cart.
func (in Input) Build() (*Cart, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	c := &Cart{LineItems: make([]*LineItem, 0, len(in.LineItems))}
	for _, li := range in.LineItems {
		item := NewLineItem(Variant{
			ID:    li.VariantID,
			Price: li.Price,
			Product: Product{
				ID:          li.ProductID,
				Title:       li.Title,
				Tags:        append([]string(nil), li.Tags...),
				Vendor:      li.Vendor,
				ProductType: li.ProductType,
				GiftCard:    li.GiftCard,
			},
		}, li.Quantity, li.Properties)
		if id := strings.TrimSpace(li.ID); id != "" {
			item.ID = id
		}
		if li.LinePrice != nil {
			item.LinePrice = *li.LinePrice
		}
		item.Discounted = li.Discounted
		c.LineItems = append(c.LineItems, item)
	}
	if in.DiscountCode != nil {
		c.DiscountCode = &DiscountCode{Code: strings.TrimSpace(in.DiscountCode.Code), Kind: in.DiscountCode.Kind}
	}
	if in.Customer != nil {
		c.Customer = &Customer{ID: in.Customer.ID, Email: in.Customer.Email, Tags: append([]string(nil), in.Customer.Tags...)}
	}
	return c, nil
}

// Output is the evaluated cart rendered back to the storefront.
type Output struct {
	LineItems    []LineItemOutput    `json:"lineItems"`
	DiscountCode *DiscountCodeOutput `json:"discountCode,omitempty"`
	Summary      pricing.Summary     `json:"summary"`
}

// LineItemOutput is one evaluated line.
type LineItemOutput struct {
	ID                string            `json:"id"`
	VariantID         int64             `json:"variantId"`
	ProductID         int64             `json:"productId"`
	Title             string            `json:"title,omitempty"`
	Quantity          int               `json:"quantity"`
	Price             pricing.Money     `json:"price"`
	LinePrice         pricing.Money     `json:"linePrice"`
	OriginalLinePrice pricing.Money     `json:"originalLinePrice"`
	Discounted        bool              `json:"discounted"`
	Message           string            `json:"message,omitempty"`
	Properties        map[string]string `json:"properties,omitempty"`
}

// DiscountCodeOutput reports the code and whether checkout rejected it.
type DiscountCodeOutput struct {
	Code             string `json:"code"`
	Rejected         bool   `json:"rejected"`
	RejectionMessage string `json:"rejectionMessage,omitempty"`
}

// View renders the cart for responses.
func View(c *Cart) Output {
	out := Output{LineItems: make([]LineItemOutput, 0, len(c.LineItems)), Summary: c.Summary()}
	for _, item := range c.LineItems {
		out.LineItems = append(out.LineItems, LineItemOutput{
			ID:                item.ID,
			VariantID:         item.Variant.ID,
			ProductID:         item.Variant.Product.ID,
			Title:             item.Variant.Product.Title,
			Quantity:          item.Quantity,
			Price:             item.UnitPrice(),
			LinePrice:         item.LinePrice,
			OriginalLinePrice: item.OriginalLinePrice,
			Discounted:        item.Discounted,
			Message:           item.Message,
			Properties:        item.Properties,
		})
	}
	if c.DiscountCode != nil {
		out.DiscountCode = &DiscountCodeOutput{
			Code:             c.DiscountCode.Code,
			Rejected:         c.DiscountCode.Rejected(),
			RejectionMessage: c.DiscountCode.RejectionMessage(),
		}
	}
	return out
}
