// Command seed-catalog loads furniture items from a JSON file into the
// snapshot store, replacing the stored catalog. Users, carts, and order
// history already in the store are preserved.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/furniture-store/internal/domain/cart"
	"github.com/xenking/furniture-store/internal/domain/catalog"
	"github.com/xenking/furniture-store/internal/domain/furniture"
	"github.com/xenking/furniture-store/internal/domain/order"
	"github.com/xenking/furniture-store/internal/domain/user"
	"github.com/xenking/furniture-store/internal/snapshot"
)

type itemJSON struct {
	ID          int             `json:"id"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Dimensions  [3]float64      `json:"dimensions"`
	Quantity    int             `json:"quantity"`

	CushionMaterial string `json:"cushion_material"`
	FrameMaterial   string `json:"frame_material"`
	Capacity        int    `json:"capacity"`
	LightSource     string `json:"light_source"`
	WallMounted     bool   `json:"wall_mounted"`
}

func main() {
	var (
		databaseURL  string
		snapshotPath string
		itemsFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&snapshotPath, "snapshot-path", "data/snapshot.json.gz", "snapshot file path when no database URL is set")
	flag.StringVar(&itemsFile, "items-file", "db/seed/furniture.json", "path to furniture JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, snapshotPath, itemsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, snapshotPath, itemsFile string) error {
	data, err := os.ReadFile(itemsFile)
	if err != nil {
		return errors.Wrap(err, "read items file")
	}

	var items []itemJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Wrap(err, "parse items file")
	}

	var store snapshot.Store
	if databaseURL != "" {
		slog.Info("connecting to database")
		pool, err := snapshot.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := snapshot.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		store = snapshot.NewPGStore(pool)
	} else {
		store = snapshot.NewFileStore(snapshotPath)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "load snapshot")
	}

	cat := catalog.New()
	for _, raw := range items {
		it, err := furniture.New(furniture.Kind(raw.Type), furniture.Spec{
			ID:          raw.ID,
			Name:        raw.Name,
			Description: raw.Description,
			Price:       raw.Price,
			Dimensions:  raw.Dimensions,
			Attributes: furniture.Attributes{
				CushionMaterial: raw.CushionMaterial,
				FrameMaterial:   raw.FrameMaterial,
				Capacity:        raw.Capacity,
				LightSource:     raw.LightSource,
				WallMounted:     raw.WallMounted,
			},
		})
		if err != nil {
			return errors.Wrapf(err, "item %q", raw.Name)
		}
		if _, err := cat.Create(it, raw.Quantity); err != nil {
			return errors.Wrapf(err, "item %q", raw.Name)
		}
	}

	fresh := snapshot.Capture(cat, user.NewRegistry(nil), order.NewHistory(), cart.NewRegistry())
	snap.Catalog = fresh.Catalog

	if err := store.Save(ctx, snap); err != nil {
		return errors.Wrap(err, "save snapshot")
	}

	slog.Info("catalog seeded", slog.Int("items", len(items)))
	return nil
}
