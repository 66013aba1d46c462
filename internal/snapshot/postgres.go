package snapshot

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/furniture-store/db"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}
	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

// PGStore persists snapshots in PostgreSQL. Save replaces the stored state
// inside one transaction; Load reads the four entity sets in parallel.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a store over the given pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// lineJSON is the JSONB shape of one order line.
type lineJSON struct {
	FurnitureID int             `json:"furniture_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
}

// Load reads the complete snapshot. Entity sets load concurrently; each one
// is independent.
func (s *PGStore) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Catalog, err = s.loadCatalog(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Users, err = s.loadUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Orders, err = s.loadOrders(ctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Carts, err = s.loadCarts(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *PGStore) loadCatalog(ctx context.Context) ([]CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, kind, name, description, price,
		dim_width, dim_depth, dim_height,
		cushion_material, frame_material, capacity, light_source, wall_mounted,
		quantity
		FROM furniture_items ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "query furniture items")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CatalogEntry, error) {
		var e CatalogEntry
		err := row.Scan(
			&e.Item.ID, &e.Item.Kind, &e.Item.Name, &e.Item.Description, &e.Item.Price,
			&e.Item.Dimensions[0], &e.Item.Dimensions[1], &e.Item.Dimensions[2],
			&e.Item.CushionMaterial, &e.Item.FrameMaterial, &e.Item.Capacity,
			&e.Item.LightSource, &e.Item.WallMounted,
			&e.Quantity,
		)
		return e, err
	})
}

func (s *PGStore) loadUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx, `SELECT email, name, address, password_hash, order_ids
		FROM users ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, "query users")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var (
			u   User
			ids []byte
		)
		if err := row.Scan(&u.Email, &u.Name, &u.Address, &u.PasswordHash, &ids); err != nil {
			return u, err
		}
		if err := json.Unmarshal(ids, &u.OrderIDs); err != nil {
			return u, errors.Wrapf(err, "order ids for user %s", u.Email)
		}
		return u, nil
	})
}

func (s *PGStore) loadOrders(ctx context.Context) ([]Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, user_email, lines, total, status,
		payment_method, shipping_address, created_at
		FROM orders ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		var (
			o     Order
			lines []byte
		)
		if err := row.Scan(&o.ID, &o.UserEmail, &lines, &o.Total, &o.Status,
			&o.PaymentMethod, &o.ShippingAddress, &o.CreatedAt); err != nil {
			return o, err
		}
		var parsed []lineJSON
		if err := json.Unmarshal(lines, &parsed); err != nil {
			return o, errors.Wrapf(err, "lines for order %d", o.ID)
		}
		o.Lines = make([]OrderLine, len(parsed))
		for i, l := range parsed {
			o.Lines[i] = OrderLine(l)
		}
		return o, nil
	})
}

func (s *PGStore) loadCarts(ctx context.Context) ([]Cart, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_email, root FROM carts`)
	if err != nil {
		return nil, errors.Wrap(err, "query carts")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Cart, error) {
		var (
			c    Cart
			root []byte
		)
		if err := row.Scan(&c.UserEmail, &root); err != nil {
			return c, err
		}
		n, err := DecodeNode(root)
		if err != nil {
			return c, errors.Wrapf(err, "cart for user %s", c.UserEmail)
		}
		c.Root = n
		return c, nil
	})
}

// Save replaces the stored snapshot inside one transaction.
func (s *PGStore) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, table := range []string{"furniture_items", "users", "orders", "carts"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return errors.Wrapf(err, "clear %s", table)
		}
	}

	for pos, e := range snap.Catalog {
		if _, err := tx.Exec(ctx, `INSERT INTO furniture_items
			(id, kind, name, description, price,
			 dim_width, dim_depth, dim_height,
			 cushion_material, frame_material, capacity, light_source, wall_mounted,
			 quantity, position)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			e.Item.ID, e.Item.Kind, e.Item.Name, e.Item.Description, e.Item.Price,
			e.Item.Dimensions[0], e.Item.Dimensions[1], e.Item.Dimensions[2],
			e.Item.CushionMaterial, e.Item.FrameMaterial, e.Item.Capacity,
			e.Item.LightSource, e.Item.WallMounted,
			e.Quantity, pos,
		); err != nil {
			return errors.Wrapf(err, "insert furniture %d", e.Item.ID)
		}
	}

	for pos, u := range snap.Users {
		ids, err := json.Marshal(u.OrderIDs)
		if err != nil {
			return errors.Wrapf(err, "marshal order ids for %s", u.Email)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO users
			(email, name, address, password_hash, order_ids, position)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			u.Email, u.Name, u.Address, u.PasswordHash, ids, pos,
		); err != nil {
			return errors.Wrapf(err, "insert user %s", u.Email)
		}
	}

	for _, o := range snap.Orders {
		parsed := make([]lineJSON, len(o.Lines))
		for i, l := range o.Lines {
			parsed[i] = lineJSON(l)
		}
		lines, err := json.Marshal(parsed)
		if err != nil {
			return errors.Wrapf(err, "marshal lines for order %d", o.ID)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO orders
			(id, user_email, lines, total, status, payment_method, shipping_address, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			o.ID, o.UserEmail, lines, o.Total, o.Status,
			o.PaymentMethod, o.ShippingAddress, o.CreatedAt,
		); err != nil {
			return errors.Wrapf(err, "insert order %d", o.ID)
		}
	}

	for _, c := range snap.Carts {
		if _, err := tx.Exec(ctx, `INSERT INTO carts (user_email, root) VALUES ($1,$2)`,
			c.UserEmail, EncodeNode(c.Root),
		); err != nil {
			return errors.Wrapf(err, "insert cart for %s", c.UserEmail)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit snapshot")
	}
	return nil
}
