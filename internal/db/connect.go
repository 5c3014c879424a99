package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:classtrack.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/classtrack?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  created_by TEXT,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sections (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS course_sections (
  course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  section_id INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  is_required BOOLEAN NOT NULL DEFAULT TRUE,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (course_id, section_id)
);

CREATE TABLE IF NOT EXISTS materials (
  id TEXT PRIMARY KEY,
  section_id INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  content_type TEXT NOT NULL,
  passing_score REAL,
  due_date INTEGER,
  position INTEGER NOT NULL DEFAULT 0,
  questions_json TEXT
);

CREATE TABLE IF NOT EXISTS section_materials (
  section_id INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
  is_required BOOLEAN NOT NULL DEFAULT TRUE,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (section_id, material_id)
);

CREATE TABLE IF NOT EXISTS enrollments (
  student_id TEXT NOT NULL,
  course_id INTEGER NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'active',
  enrolled_at INTEGER NOT NULL,
  completed_at INTEGER,
  PRIMARY KEY (student_id, course_id)
);

CREATE TABLE IF NOT EXISTS progress_records (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  course_id INTEGER NOT NULL,
  section_id INTEGER NOT NULL,
  material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  progress_pct REAL NOT NULL DEFAULT 0,
  time_spent_sec INTEGER NOT NULL DEFAULT 0,
  score REAL,
  attempts INTEGER NOT NULL DEFAULT 0,
  interactions_json TEXT NOT NULL DEFAULT '{}',
  started_at INTEGER NOT NULL,
  completed_at INTEGER,
  last_accessed_at INTEGER NOT NULL,
  UNIQUE (student_id, material_id)
);

CREATE TABLE IF NOT EXISTS section_progress (
  student_id TEXT NOT NULL,
  section_id INTEGER NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'not_started',
  completed_at INTEGER,
  PRIMARY KEY (student_id, section_id)
);

CREATE TABLE IF NOT EXISTS quiz_submissions (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
  attempt_number INTEGER NOT NULL,
  score REAL NOT NULL,
  total_questions INTEGER NOT NULL,
  correct_answers INTEGER NOT NULL,
  time_taken_sec INTEGER NOT NULL DEFAULT 0,
  answers_json TEXT NOT NULL,
  results_json TEXT NOT NULL,
  passed BOOLEAN NOT NULL,
  submitted_at INTEGER NOT NULL,
  UNIQUE (student_id, material_id, attempt_number)
);

CREATE TABLE IF NOT EXISTS assignment_submissions (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
  submission_type TEXT NOT NULL,
  content TEXT NOT NULL DEFAULT '',
  file_path TEXT NOT NULL DEFAULT '',
  original_filename TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'submitted',
  grade REAL,
  feedback TEXT NOT NULL DEFAULT '',
  submitted_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assignment_submissions_pair
  ON assignment_submissions (student_id, material_id);

CREATE TABLE IF NOT EXISTS aggregation_retries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  student_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  target_id INTEGER NOT NULL,
  course_id INTEGER NOT NULL,
  last_error TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  resolved_at INTEGER
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'student',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  created_by TEXT,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS sections (
  id BIGSERIAL PRIMARY KEY,
  course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  name TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS course_sections (
  course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  section_id BIGINT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  is_required BOOLEAN NOT NULL DEFAULT TRUE,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (course_id, section_id)
);

CREATE TABLE IF NOT EXISTS materials (
  id TEXT PRIMARY KEY,
  section_id BIGINT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  content_type TEXT NOT NULL,
  passing_score DOUBLE PRECISION,
  due_date BIGINT,
  position INTEGER NOT NULL DEFAULT 0,
  questions_json TEXT
);

CREATE TABLE IF NOT EXISTS section_materials (
  section_id BIGINT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
  is_required BOOLEAN NOT NULL DEFAULT TRUE,
  position INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (section_id, material_id)
);

CREATE TABLE IF NOT EXISTS enrollments (
  student_id TEXT NOT NULL,
  course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'active',
  enrolled_at BIGINT NOT NULL,
  completed_at BIGINT,
  PRIMARY KEY (student_id, course_id)
);

CREATE TABLE IF NOT EXISTS progress_records (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  course_id BIGINT NOT NULL,
  section_id BIGINT NOT NULL,
  material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  progress_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
  time_spent_sec BIGINT NOT NULL DEFAULT 0,
  score DOUBLE PRECISION,
  attempts INTEGER NOT NULL DEFAULT 0,
  interactions_json TEXT NOT NULL DEFAULT '{}',
  started_at BIGINT NOT NULL,
  completed_at BIGINT,
  last_accessed_at BIGINT NOT NULL,
  UNIQUE (student_id, material_id)
);

CREATE TABLE IF NOT EXISTS section_progress (
  student_id TEXT NOT NULL,
  section_id BIGINT NOT NULL REFERENCES sections(id) ON DELETE CASCADE,
  status TEXT NOT NULL DEFAULT 'not_started',
  completed_at BIGINT,
  PRIMARY KEY (student_id, section_id)
);

CREATE TABLE IF NOT EXISTS quiz_submissions (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
  attempt_number INTEGER NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  total_questions INTEGER NOT NULL,
  correct_answers INTEGER NOT NULL,
  time_taken_sec BIGINT NOT NULL DEFAULT 0,
  answers_json TEXT NOT NULL,
  results_json TEXT NOT NULL,
  passed BOOLEAN NOT NULL,
  submitted_at BIGINT NOT NULL,
  UNIQUE (student_id, material_id, attempt_number)
);

CREATE TABLE IF NOT EXISTS assignment_submissions (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  material_id TEXT NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
  submission_type TEXT NOT NULL,
  content TEXT NOT NULL DEFAULT '',
  file_path TEXT NOT NULL DEFAULT '',
  original_filename TEXT NOT NULL DEFAULT '',
  url TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'submitted',
  grade DOUBLE PRECISION,
  feedback TEXT NOT NULL DEFAULT '',
  submitted_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assignment_submissions_pair
  ON assignment_submissions (student_id, material_id);

CREATE TABLE IF NOT EXISTS aggregation_retries (
  id BIGSERIAL PRIMARY KEY,
  student_id TEXT NOT NULL,
  kind TEXT NOT NULL,
  target_id BIGINT NOT NULL,
  course_id BIGINT NOT NULL,
  last_error TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL,
  resolved_at BIGINT
);
`
