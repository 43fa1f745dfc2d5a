package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/avelles/store-backend/internal/domain/catalog"
	"github.com/avelles/store-backend/internal/domain/order"
	"github.com/avelles/store-backend/internal/domain/pricing"
)

// writeJSON encodes a payload with jx and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes the uniform client-facing error payload.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(msg)
		e.ObjEnd()
	})
}

// encodeDecimal writes a decimal as a JSON number with its exact digits,
// skipping the float64 detour.
func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func encodeItem(e *jx.Encoder, it catalog.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("price")
	encodeDecimal(e, it.Price)
	e.FieldStart("currency")
	e.Str(string(it.Currency))
	e.FieldStart("display_price")
	e.Str(it.DisplayPrice())
	e.ObjEnd()
}

func encodeDiscount(e *jx.Encoder, d *pricing.Discount) {
	if d == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("id")
	e.Str(d.ID)
	e.FieldStart("name")
	e.Str(d.Name)
	e.FieldStart("percent_off")
	e.Int(d.PercentOff)
	e.ObjEnd()
}

func encodeTax(e *jx.Encoder, t *pricing.Tax) {
	if t == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("id")
	e.Str(t.ID)
	e.FieldStart("name")
	e.Str(t.Name)
	e.FieldStart("percent")
	e.Int(t.Percent)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updated_at")
	e.Str(o.UpdatedAt.UTC().Format(time.RFC3339))

	e.FieldStart("items")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		e.FieldStart("item")
		encodeItem(e, l.Item)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("discount")
	encodeDiscount(e, o.Discount)
	e.FieldStart("tax")
	encodeTax(e, o.Tax)

	e.FieldStart("total_price")
	encodeDecimal(e, o.Total())

	e.FieldStart("currency")
	if currency, err := o.Currency(); err != nil {
		// The serialized view reports the inconsistency instead of failing
		// the whole read.
		e.Str(err.Error())
	} else {
		e.Str(string(currency))
	}
	e.ObjEnd()
}

// orderPayload is the create/update request body.
type orderPayload struct {
	Lines      []order.LineInput
	DiscountID string
	TaxID      string
}

// decodeOrderPayload parses {"items": [{"item_id", "quantity"}],
// "discount_id", "tax_id"}. Unknown fields are skipped.
func decodeOrderPayload(data []byte) (orderPayload, error) {
	var p orderPayload
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var line order.LineInput
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "item_id":
						v, err := d.Str()
						line.ItemID = v
						return err
					case "quantity":
						v, err := d.Int()
						line.Quantity = v
						return err
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				p.Lines = append(p.Lines, line)
				return nil
			})
		case "discount_id":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			p.DiscountID = v
			return err
		case "tax_id":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := d.Str()
			p.TaxID = v
			return err
		default:
			return d.Skip()
		}
	})
	return p, err
}
