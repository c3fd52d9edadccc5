// Package store writes a run's results to a SQLite database: the yearly
// LCA flow batches, the pathway criterion history and the inventory
// ledgers.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/NREL/celavi-sub000/sim"
	"github.com/NREL/celavi-sub000/sim/costgraph"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS lca_flows (
		run INTEGER NOT NULL,
		year INTEGER NOT NULL,
		facility_id INTEGER NOT NULL,
		stage TEXT NOT NULL,
		material TEXT NOT NULL,
		flow_quantity_kg REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS lca_transport (
		run INTEGER NOT NULL,
		year INTEGER NOT NULL,
		facility_id INTEGER NOT NULL,
		tonne_km REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS criterion_history (
		run INTEGER NOT NULL,
		year REAL NOT NULL,
		source_facility_id INTEGER NOT NULL,
		destination_facility_id INTEGER NOT NULL,
		region_id_1 TEXT,
		region_id_2 TEXT,
		region_id_3 TEXT,
		region_id_4 TEXT,
		eol_pathway_type TEXT NOT NULL,
		eol_pathway_criterion REAL NOT NULL,
		bol_pathway_criterion REAL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_history (
		run INTEGER NOT NULL,
		unit TEXT NOT NULL,
		step TEXT NOT NULL,
		facility_id INTEGER NOT NULL,
		facility_type TEXT,
		item TEXT NOT NULL,
		timestep INTEGER NOT NULL,
		transaction_quantity REAL NOT NULL,
		level REAL NOT NULL
	)`,
}

// Store is a SQLite results sink for one run. It implements sim.LCA so it
// can receive the yearly flow batches directly.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
	run  int
}

var _ sim.LCA = (*Store)(nil)

// Open creates or opens the database at path and ensures the schema.
// Rows written by this Store carry run.
func Open(path string, run int) (*Store, error) {
	if path == "" {
		path = "celavi.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &Store{db: db, path: path, run: run}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for inspection.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database path.
func (s *Store) Path() string { return s.path }

// ProcessFlows stores one yearly batch in a single transaction.
func (s *Store) ProcessFlows(batch sim.FlowBatch) error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, f := range batch.Flows {
			if _, err := tx.Exec(`INSERT INTO lca_flows(run,year,facility_id,stage,material,flow_quantity_kg) VALUES(?,?,?,?,?,?)`,
				s.run, f.Year, f.FacilityID, f.Stage, f.Material, f.FlowQuantityKg); err != nil {
				return fmt.Errorf("insert flow: %w", err)
			}
		}
		for _, r := range batch.Transport {
			if _, err := tx.Exec(`INSERT INTO lca_transport(run,year,facility_id,tonne_km) VALUES(?,?,?,?)`,
				s.run, r.Year, r.FacilityID, r.TonneKm); err != nil {
				return fmt.Errorf("insert transport: %w", err)
			}
		}
		return nil
	})
}

// SaveCriterionHistory stores the pathway criteria recorded by the graph.
func (s *Store) SaveCriterionHistory(records []costgraph.CriterionRecord) error {
	return s.inTx(func(tx *sql.Tx) error {
		for _, r := range records {
			var bol sql.NullFloat64
			if r.BOLCriterion != nil {
				bol = sql.NullFloat64{Float64: *r.BOLCriterion, Valid: true}
			}
			if _, err := tx.Exec(`INSERT INTO criterion_history(run,year,source_facility_id,destination_facility_id,region_id_1,region_id_2,region_id_3,region_id_4,eol_pathway_type,eol_pathway_criterion,bol_pathway_criterion) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
				r.Run, r.Year, r.SourceFacilityID, r.DestinationFacilityID,
				r.RegionIDs[0], r.RegionIDs[1], r.RegionIDs[2], r.RegionIDs[3],
				r.EOLPathwayType, r.EOLCriterion, bol); err != nil {
				return fmt.Errorf("insert criterion: %w", err)
			}
		}
		return nil
	})
}

// SaveInventories stores every timestep with a nonzero transaction, with
// the level after it.
func (s *Store) SaveInventories(invs map[costgraph.StageKey]*sim.Inventory) error {
	keys := make([]costgraph.StageKey, 0, len(invs))
	for k := range invs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	rows := 0
	err := s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO inventory_history(run,unit,step,facility_id,facility_type,item,timestep,transaction_quantity,level) VALUES(?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("prepare inventory insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()
		for _, k := range keys {
			inv := invs[k]
			for _, item := range inv.Items() {
				levels := inv.CumulativeHistory(item)
				for t, q := range inv.TransactionHistory(item) {
					if q == 0 {
						continue
					}
					if _, err := stmt.Exec(s.run, inv.Unit, k.Step, k.FacilityID, inv.FacilityType, item, t, q, levels[t]); err != nil {
						return fmt.Errorf("insert inventory %s: %w", k, err)
					}
					rows++
				}
			}
		}
		return nil
	})
	if err == nil {
		logrus.Debugf("Stored %d inventory rows for %d stages", rows, len(keys))
	}
	return err
}

func (s *Store) inTx(fn func(tx *sql.Tx) error) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
