package snapshot

import (
	"database/sql"
	"fmt"
	"sort"

	"fidx/internal/fact"
	"fidx/internal/span"
	"fidx/internal/store"
)

// SaveDocument persists a document's source and live facts, replacing any
// previous snapshot of the same path. Only live facts are written; removal
// history is not part of a snapshot.
func (db *DB) SaveDocument(path string, source []byte, st *store.Store) error {
	return db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path); err != nil {
			return err
		}
		res, err := tx.Exec(
			`INSERT INTO documents (path, generation, source) VALUES (?, ?, ?)`,
			path, int64(st.Generation()), source)
		if err != nil {
			return err
		}
		docID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		stmt, err := tx.Prepare(
			`INSERT INTO facts (doc_id, fact_id, subject, predicate, value_kind, value_bits, confidence, generation)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		var insertErr error
		st.EachLive(func(id fact.ID, f fact.Fact) bool {
			kind, bits := f.Object().Raw()
			_, insertErr = stmt.Exec(
				docID,
				int64(id),
				int64(uint64(f.PackedSubject())),
				int64(f.Predicate()),
				int64(kind),
				int64(bits),
				float64(f.Confidence()),
				int64(f.Generation()),
			)
			return insertErr == nil
		})
		if insertErr != nil {
			return insertErr
		}
		db.logger.Debug("snapshot saved", "path", path, "generation", uint32(st.Generation()))
		return nil
	})
}

// LoadDocument restores a document's source and fact store. Snapshot fact
// ids are compacted to a dense range on load; fact-reference values are
// remapped to the new ids.
func (db *DB) LoadDocument(path string) ([]byte, *store.Store, error) {
	var (
		source []byte
		gen    int64
		docID  int64
	)
	err := db.conn.QueryRow(
		`SELECT id, generation, source FROM documents WHERE path = ?`, path).
		Scan(&docID, &gen, &source)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("no snapshot for %q", path)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := db.conn.Query(
		`SELECT fact_id, subject, predicate, value_kind, value_bits, confidence, generation
		 FROM facts WHERE doc_id = ? ORDER BY fact_id`, docID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		oldIDs []fact.ID
		facts  []fact.Fact
	)
	for rows.Next() {
		var (
			factID, subject, predicate, kind, bits, factGen int64
			confidence                                      float64
		)
		if err := rows.Scan(&factID, &subject, &predicate, &kind, &bits, &confidence, &factGen); err != nil {
			return nil, nil, err
		}
		f := fact.New(
			span.Packed(uint64(subject)).Unpack(),
			fact.Predicate(predicate),
			fact.FromRaw(fact.ValueKind(kind), uint64(bits)),
			float32(confidence),
		).WithGeneration(fact.Generation(factGen))
		oldIDs = append(oldIDs, fact.ID(factID))
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	remapFactRefs(facts, oldIDs)
	return source, store.Restore(facts, fact.Generation(gen)), nil
}

// remapFactRefs rewrites fact-reference values from snapshot ids to the
// dense post-load ids (the rank of the old id in sorted order).
func remapFactRefs(facts []fact.Fact, oldIDs []fact.ID) {
	for i, f := range facts {
		ref, ok := f.Object().Fact()
		if !ok {
			continue
		}
		rank := sort.Search(len(oldIDs), func(j int) bool { return oldIDs[j] >= ref })
		if rank == len(oldIDs) || oldIDs[rank] != ref {
			continue // dangling reference, keep as-is
		}
		facts[i] = fact.New(
			f.Subject(), f.Predicate(), fact.FactRef(fact.ID(rank)), f.Confidence(),
		).WithGeneration(f.Generation())
	}
}

// Paths returns the snapshotted document paths, sorted.
func (db *DB) Paths() ([]string, error) {
	rows, err := db.conn.Query(`SELECT path FROM documents ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteDocument removes a document's snapshot.
func (db *DB) DeleteDocument(path string) error {
	return db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`DELETE FROM documents WHERE path = ?`, path)
		return err
	})
}
