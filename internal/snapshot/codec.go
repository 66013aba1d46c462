package snapshot

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode serializes a snapshot with the jx streaming encoder. Decimals are
// written as strings to keep them exact across the round trip.
func Encode(s *Snapshot) []byte {
	var e jx.Encoder

	e.ObjStart()

	e.FieldStart("catalog")
	e.ArrStart()
	for _, entry := range s.Catalog {
		encodeCatalogEntry(&e, entry)
	}
	e.ArrEnd()

	e.FieldStart("users")
	e.ArrStart()
	for _, u := range s.Users {
		encodeUser(&e, u)
	}
	e.ArrEnd()

	e.FieldStart("orders")
	e.ArrStart()
	for _, o := range s.Orders {
		encodeOrder(&e, o)
	}
	e.ArrEnd()

	e.FieldStart("carts")
	e.ArrStart()
	for _, c := range s.Carts {
		e.ObjStart()
		e.FieldStart("user_email")
		e.Str(c.UserEmail)
		e.FieldStart("root")
		encodeNode(&e, c.Root)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.ObjEnd()
	return e.Bytes()
}

func encodeCatalogEntry(e *jx.Encoder, entry CatalogEntry) {
	it := entry.Item
	e.ObjStart()
	e.FieldStart("id")
	e.Int(it.ID)
	e.FieldStart("kind")
	e.Str(it.Kind)
	e.FieldStart("name")
	e.Str(it.Name)
	e.FieldStart("description")
	e.Str(it.Description)
	e.FieldStart("price")
	e.Str(it.Price.String())
	e.FieldStart("dimensions")
	e.ArrStart()
	for _, d := range it.Dimensions {
		e.Float64(d)
	}
	e.ArrEnd()
	e.FieldStart("cushion_material")
	e.Str(it.CushionMaterial)
	e.FieldStart("frame_material")
	e.Str(it.FrameMaterial)
	e.FieldStart("capacity")
	e.Int(it.Capacity)
	e.FieldStart("light_source")
	e.Str(it.LightSource)
	e.FieldStart("wall_mounted")
	e.Bool(it.WallMounted)
	e.FieldStart("quantity")
	e.Int(entry.Quantity)
	e.ObjEnd()
}

func encodeUser(e *jx.Encoder, u User) {
	e.ObjStart()
	e.FieldStart("email")
	e.Str(u.Email)
	e.FieldStart("name")
	e.Str(u.Name)
	e.FieldStart("address")
	e.Str(u.Address)
	e.FieldStart("password_hash")
	e.Str(u.PasswordHash)
	e.FieldStart("order_ids")
	e.ArrStart()
	for _, id := range u.OrderIDs {
		e.Int(id)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int(o.ID)
	e.FieldStart("user_email")
	e.Str(o.UserEmail)
	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range o.Lines {
		e.ObjStart()
		e.FieldStart("furniture_id")
		e.Int(l.FurnitureID)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unit_price")
		e.Str(l.UnitPrice.String())
		e.FieldStart("discount")
		e.Str(l.Discount.String())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	e.Str(o.Total.String())
	e.FieldStart("status")
	e.Str(o.Status)
	e.FieldStart("payment_method")
	e.Str(o.PaymentMethod)
	e.FieldStart("shipping_address")
	e.Str(o.ShippingAddress)
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
}

func encodeNode(e *jx.Encoder, n Node) {
	e.ObjStart()
	e.FieldStart("kind")
	e.Str(n.Kind)
	if n.Kind == nodeBundle {
		e.FieldStart("name")
		e.Str(n.Name)
		e.FieldStart("children")
		e.ArrStart()
		for _, child := range n.Children {
			encodeNode(e, child)
		}
		e.ArrEnd()
	} else {
		e.FieldStart("furniture_id")
		e.Int(n.FurnitureID)
		e.FieldStart("quantity")
		e.Int(n.Quantity)
		e.FieldStart("unit_price")
		e.Str(n.UnitPrice.String())
		e.FieldStart("discount")
		e.Str(n.Discount.String())
	}
	e.ObjEnd()
}

// EncodeNode serializes a single cart tree, used for the JSONB cart column
// in the PostgreSQL store.
func EncodeNode(n Node) []byte {
	var e jx.Encoder
	encodeNode(&e, n)
	return e.Bytes()
}

// DecodeNode parses a cart tree produced by EncodeNode.
func DecodeNode(data []byte) (Node, error) {
	return decodeNode(jx.DecodeBytes(data))
}

// Decode parses a snapshot produced by Encode. Unknown fields are skipped so
// older snapshots stay readable.
func Decode(data []byte) (*Snapshot, error) {
	d := jx.DecodeBytes(data)
	s := &Snapshot{}

	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "catalog":
			return d.Arr(func(d *jx.Decoder) error {
				entry, err := decodeCatalogEntry(d)
				if err != nil {
					return err
				}
				s.Catalog = append(s.Catalog, entry)
				return nil
			})
		case "users":
			return d.Arr(func(d *jx.Decoder) error {
				u, err := decodeUser(d)
				if err != nil {
					return err
				}
				s.Users = append(s.Users, u)
				return nil
			})
		case "orders":
			return d.Arr(func(d *jx.Decoder) error {
				o, err := decodeOrder(d)
				if err != nil {
					return err
				}
				s.Orders = append(s.Orders, o)
				return nil
			})
		case "carts":
			return d.Arr(func(d *jx.Decoder) error {
				var c Cart
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "user_email":
						v, err := d.Str()
						c.UserEmail = v
						return err
					case "root":
						n, err := decodeNode(d)
						c.Root = n
						return err
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				s.Carts = append(s.Carts, c)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return s, nil
}

func decodeCatalogEntry(d *jx.Decoder) (CatalogEntry, error) {
	var entry CatalogEntry
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			entry.Item.ID, err = d.Int()
		case "kind":
			entry.Item.Kind, err = d.Str()
		case "name":
			entry.Item.Name, err = d.Str()
		case "description":
			entry.Item.Description, err = d.Str()
		case "price":
			entry.Item.Price, err = decodeDecimal(d)
		case "dimensions":
			i := 0
			err = d.Arr(func(d *jx.Decoder) error {
				v, aerr := d.Float64()
				if aerr != nil {
					return aerr
				}
				if i < len(entry.Item.Dimensions) {
					entry.Item.Dimensions[i] = v
				}
				i++
				return nil
			})
		case "cushion_material":
			entry.Item.CushionMaterial, err = d.Str()
		case "frame_material":
			entry.Item.FrameMaterial, err = d.Str()
		case "capacity":
			entry.Item.Capacity, err = d.Int()
		case "light_source":
			entry.Item.LightSource, err = d.Str()
		case "wall_mounted":
			entry.Item.WallMounted, err = d.Bool()
		case "quantity":
			entry.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return entry, err
}

func decodeUser(d *jx.Decoder) (User, error) {
	var u User
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "email":
			u.Email, err = d.Str()
		case "name":
			u.Name, err = d.Str()
		case "address":
			u.Address, err = d.Str()
		case "password_hash":
			u.PasswordHash, err = d.Str()
		case "order_ids":
			err = d.Arr(func(d *jx.Decoder) error {
				id, aerr := d.Int()
				if aerr != nil {
					return aerr
				}
				u.OrderIDs = append(u.OrderIDs, id)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	return u, err
}

func decodeOrder(d *jx.Decoder) (Order, error) {
	var o Order
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Int()
		case "user_email":
			o.UserEmail, err = d.Str()
		case "lines":
			err = d.Arr(func(d *jx.Decoder) error {
				var l OrderLine
				if lerr := d.Obj(func(d *jx.Decoder, key string) error {
					var lerr error
					switch key {
					case "furniture_id":
						l.FurnitureID, lerr = d.Int()
					case "quantity":
						l.Quantity, lerr = d.Int()
					case "unit_price":
						l.UnitPrice, lerr = decodeDecimal(d)
					case "discount":
						l.Discount, lerr = decodeDecimal(d)
					default:
						lerr = d.Skip()
					}
					return lerr
				}); lerr != nil {
					return lerr
				}
				o.Lines = append(o.Lines, l)
				return nil
			})
		case "total":
			o.Total, err = decodeDecimal(d)
		case "status":
			o.Status, err = d.Str()
		case "payment_method":
			o.PaymentMethod, err = d.Str()
		case "shipping_address":
			o.ShippingAddress, err = d.Str()
		case "created_at":
			var v string
			if v, err = d.Str(); err == nil {
				o.CreatedAt, err = time.Parse(time.RFC3339Nano, v)
			}
		default:
			err = d.Skip()
		}
		return err
	})
	return o, err
}

func decodeNode(d *jx.Decoder) (Node, error) {
	var n Node
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "kind":
			n.Kind, err = d.Str()
		case "name":
			n.Name, err = d.Str()
		case "children":
			err = d.Arr(func(d *jx.Decoder) error {
				child, cerr := decodeNode(d)
				if cerr != nil {
					return cerr
				}
				n.Children = append(n.Children, child)
				return nil
			})
		case "furniture_id":
			n.FurnitureID, err = d.Int()
		case "quantity":
			n.Quantity, err = d.Int()
		case "unit_price":
			n.UnitPrice, err = decodeDecimal(d)
		case "discount":
			n.Discount, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return n, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	v, err := d.Str()
	if err != nil {
		return decimal.Decimal{}, err
	}
	out, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "parse decimal %q", v)
	}
	return out, nil
}
