package snapshot

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"fidx/internal/atom"
)

// SaveAtoms persists the atom table as a single zstd-compressed blob of
// uvarint-length-prefixed strings in id order.
func (db *DB) SaveAtoms(atoms *atom.Table) error {
	var raw bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	err := atoms.Each(func(_ atom.ID, text string) error {
		n := binary.PutUvarint(tmp[:], uint64(len(text)))
		raw.Write(tmp[:n])
		raw.WriteString(text)
		return nil
	})
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	blob := enc.EncodeAll(raw.Bytes(), nil)
	enc.Close()

	return db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO atoms (id, blob) VALUES (1, ?)
			 ON CONFLICT(id) DO UPDATE SET blob = excluded.blob`, blob)
		return err
	})
}

// LoadAtoms restores the atom table. A database with no saved atoms yields
// a fresh table.
func (db *DB) LoadAtoms() (*atom.Table, error) {
	var blob []byte
	err := db.conn.QueryRow(`SELECT blob FROM atoms WHERE id = 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return atom.NewTable(), nil
	}
	if err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress atom blob: %w", err)
	}

	var texts []string
	for len(raw) > 0 {
		size, n := binary.Uvarint(raw)
		if n <= 0 || uint64(len(raw)-n) < size {
			return nil, fmt.Errorf("truncated atom blob")
		}
		texts = append(texts, string(raw[n:n+int(size)]))
		raw = raw[n+int(size):]
	}
	if len(texts) == 0 || texts[0] != "" {
		return nil, fmt.Errorf("atom blob missing empty-string sentinel")
	}
	return atom.Restore(texts), nil
}
