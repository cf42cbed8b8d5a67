// Package devserver is a reference implementation of the class/section
// backend contract. It is used by tests and by cmd/classdeskd for local
// demos; it does not check credentials.
package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/classdesk/pkg/model"
)

// Sentinel errors let handlers pick a status code. Wrap them with a
// human-readable reason: fmt.Errorf("%w: class has sections", ErrConflict).
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

const schema = `
CREATE TABLE IF NOT EXISTS classes (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	code TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS sections (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	class_id INTEGER NOT NULL REFERENCES classes(id),
	name     TEXT NOT NULL,
	capacity INTEGER NOT NULL CHECK (capacity > 0)
);
CREATE TABLE IF NOT EXISTS enrollments (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	section_id   INTEGER NOT NULL REFERENCES sections(id),
	student_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sections_class ON sections(class_id);
CREATE INDEX IF NOT EXISTS idx_enrollments_section ON enrollments(section_id);
`

// Store keeps classes, sections and enrollments in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a store. An empty path means a private in-memory
// database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	// One connection: an in-memory database exists per connection, and SQLite
	// serialises writers anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ListClasses returns all classes ordered by name.
func (s *Store) ListClasses(ctx context.Context) ([]model.Class, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, code FROM classes ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	defer rows.Close()

	classes := []model.Class{}
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Code); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// GetClass returns one class.
func (s *Store) GetClass(ctx context.Context, id int64) (model.Class, error) {
	var c model.Class
	err := s.db.QueryRowContext(ctx, `SELECT id, name, code FROM classes WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("%w: class %d does not exist", ErrNotFound, id)
	}
	if err != nil {
		return c, fmt.Errorf("get class: %w", err)
	}
	return c, nil
}

// CreateClass inserts a class. Names are unique, case-insensitively.
func (s *Store) CreateClass(ctx context.Context, name, code string) (model.Class, error) {
	trimmed, err := model.ValidateClassName(name)
	if err != nil {
		return model.Class{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.checkClassNameFree(ctx, trimmed, 0); err != nil {
		return model.Class{}, err
	}
	code = strings.TrimSpace(code)
	res, err := s.db.ExecContext(ctx, `INSERT INTO classes (name, code) VALUES (?, ?)`, trimmed, code)
	if err != nil {
		return model.Class{}, fmt.Errorf("insert class: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Class{}, fmt.Errorf("insert class: %w", err)
	}
	return model.Class{ID: id, Name: trimmed, Code: code}, nil
}

// RenameClass changes a class name and returns the stored class.
func (s *Store) RenameClass(ctx context.Context, id int64, name string) (model.Class, error) {
	trimmed, err := model.ValidateClassName(name)
	if err != nil {
		return model.Class{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := s.GetClass(ctx, id); err != nil {
		return model.Class{}, err
	}
	if err := s.checkClassNameFree(ctx, trimmed, id); err != nil {
		return model.Class{}, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE classes SET name = ? WHERE id = ?`, trimmed, id); err != nil {
		return model.Class{}, fmt.Errorf("rename class: %w", err)
	}
	return s.GetClass(ctx, id)
}

// DeleteClass removes a class that owns no sections.
func (s *Store) DeleteClass(ctx context.Context, id int64) error {
	if _, err := s.GetClass(ctx, id); err != nil {
		return err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sections WHERE class_id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("count sections: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: class has sections", ErrConflict)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM classes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}

func (s *Store) checkClassNameFree(ctx context.Context, name string, exceptID int64) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM classes WHERE lower(name) = lower(?) AND id <> ?`, name, exceptID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check class name: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: a class named %q already exists", ErrConflict, name)
	}
	return nil
}

const sectionSelect = `
SELECT s.id, s.class_id, s.name, s.capacity, COUNT(e.id)
FROM sections s
LEFT JOIN enrollments e ON e.section_id = s.id`

func scanSection(sc interface{ Scan(...any) error }) (model.Section, error) {
	var sec model.Section
	if err := sc.Scan(&sec.ID, &sec.ClassID, &sec.Name, &sec.Capacity, &sec.CurrentStudents); err != nil {
		return sec, err
	}
	sec.Full = sec.CurrentStudents >= sec.Capacity
	return sec, nil
}

// ListSections returns the sections of a class with server-computed
// occupancy. An unknown class yields an empty list.
func (s *Store) ListSections(ctx context.Context, classID int64) ([]model.Section, error) {
	rows, err := s.db.QueryContext(ctx,
		sectionSelect+` WHERE s.class_id = ? GROUP BY s.id ORDER BY s.name, s.id`, classID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	sections := []model.Section{}
	for rows.Next() {
		sec, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

// GetSection returns one section.
func (s *Store) GetSection(ctx context.Context, id int64) (model.Section, error) {
	row := s.db.QueryRowContext(ctx, sectionSelect+` WHERE s.id = ? GROUP BY s.id`, id)
	sec, err := scanSection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return sec, fmt.Errorf("%w: section %d does not exist", ErrNotFound, id)
	}
	if err != nil {
		return sec, fmt.Errorf("get section: %w", err)
	}
	return sec, nil
}

// CreateSection adds a section to an existing class.
func (s *Store) CreateSection(ctx context.Context, classID int64, name string, capacity int) (model.Section, error) {
	trimmed, err := validateSection(name, capacity)
	if err != nil {
		return model.Section{}, err
	}
	if _, err := s.GetClass(ctx, classID); err != nil {
		return model.Section{}, err
	}
	if err := s.checkSectionNameFree(ctx, classID, trimmed, 0); err != nil {
		return model.Section{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sections (class_id, name, capacity) VALUES (?, ?, ?)`, classID, trimmed, capacity)
	if err != nil {
		return model.Section{}, fmt.Errorf("insert section: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Section{}, fmt.Errorf("insert section: %w", err)
	}
	return s.GetSection(ctx, id)
}

// UpdateSection renames a section and changes its capacity. Sections never
// move between classes, and capacity cannot drop below current enrollment.
func (s *Store) UpdateSection(ctx context.Context, id, classID int64, name string, capacity int) (model.Section, error) {
	trimmed, err := validateSection(name, capacity)
	if err != nil {
		return model.Section{}, err
	}
	cur, err := s.GetSection(ctx, id)
	if err != nil {
		return model.Section{}, err
	}
	if classID != 0 && classID != cur.ClassID {
		return model.Section{}, fmt.Errorf("%w: sections cannot move between classes", ErrInvalid)
	}
	if capacity < cur.CurrentStudents {
		return model.Section{}, fmt.Errorf("%w: capacity %d is below the %d enrolled students", ErrConflict, capacity, cur.CurrentStudents)
	}
	if err := s.checkSectionNameFree(ctx, cur.ClassID, trimmed, id); err != nil {
		return model.Section{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE sections SET name = ?, capacity = ? WHERE id = ?`, trimmed, capacity, id); err != nil {
		return model.Section{}, fmt.Errorf("update section: %w", err)
	}
	return s.GetSection(ctx, id)
}

// DeleteSection removes a section with no assigned students.
func (s *Store) DeleteSection(ctx context.Context, id int64) error {
	cur, err := s.GetSection(ctx, id)
	if err != nil {
		return err
	}
	if cur.CurrentStudents > 0 {
		return fmt.Errorf("%w: section has %d assigned students", ErrConflict, cur.CurrentStudents)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sections WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// Enroll assigns students to a section. The server alone derives occupancy
// from these rows.
func (s *Store) Enroll(ctx context.Context, sectionID int64, students ...string) error {
	if _, err := s.GetSection(ctx, sectionID); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin enroll: %w", err)
	}
	defer tx.Rollback()
	for _, name := range students {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO enrollments (section_id, student_name) VALUES (?, ?)`, sectionID, name); err != nil {
			return fmt.Errorf("enroll %q: %w", name, err)
		}
	}
	return tx.Commit()
}

func (s *Store) checkSectionNameFree(ctx context.Context, classID int64, name string, exceptID int64) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sections WHERE class_id = ? AND lower(name) = lower(?) AND id <> ?`,
		classID, name, exceptID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check section name: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: section %q already exists in this class", ErrConflict, name)
	}
	return nil
}

func validateSection(name string, capacity int) (string, error) {
	trimmed, err := model.ValidateSectionName(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := model.ValidateCapacity(capacity); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return trimmed, nil
}
