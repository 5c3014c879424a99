package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLCatalog serves material and structure lookups from the relational store.
type SQLCatalog struct {
	db *sql.DB
}

func NewSQLCatalog(db *sql.DB) *SQLCatalog { return &SQLCatalog{db: db} }

func (c *SQLCatalog) GetMaterial(ctx context.Context, id MaterialID) (Material, error) {
	var m Material
	err := c.db.QueryRowContext(ctx,
		`SELECT id, section_id, title, content_type, passing_score, due_date, position
		   FROM materials WHERE id=$1`, string(id)).
		Scan(&m.ID, &m.SectionID, &m.Title, &m.ContentType, &m.PassingScore, &m.DueDate, &m.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return Material{}, ErrMaterialNotFound
	}
	if err != nil {
		return Material{}, fmt.Errorf("get material %s: %w", id, err)
	}
	return m, nil
}

func (c *SQLCatalog) MaterialExists(ctx context.Context, id MaterialID) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx, `SELECT 1 FROM materials WHERE id=$1`, string(id)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *SQLCatalog) RequiredMaterialIDs(ctx context.Context, sectionID int64) ([]MaterialID, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT material_id FROM section_materials
		  WHERE section_id=$1 AND is_required=TRUE ORDER BY position`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("required materials for section %d: %w", sectionID, err)
	}
	defer rows.Close()
	var out []MaterialID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, MaterialID(id))
	}
	return out, rows.Err()
}

func (c *SQLCatalog) RequiredSectionIDs(ctx context.Context, courseID int64) ([]int64, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT section_id FROM course_sections
		  WHERE course_id=$1 AND is_required=TRUE ORDER BY position`, courseID)
	if err != nil {
		return nil, fmt.Errorf("required sections for course %d: %w", courseID, err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
