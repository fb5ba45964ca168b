package sqlite

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

const createBestScoresTableSQL = `
CREATE TABLE IF NOT EXISTS BestScores (
    Username TEXT PRIMARY KEY,
    Score INTEGER NOT NULL,
    UpdatedAt TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

const createBestScoresIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_best_score ON BestScores (Score DESC);
`

// 只有新分数更高时才覆盖
const upsertBestScoreSQL = `
INSERT INTO BestScores (Username, Score, UpdatedAt) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(Username) DO UPDATE SET Score = excluded.Score, UpdatedAt = excluded.UpdatedAt
WHERE excluded.Score > BestScores.Score;
`

// ScoreEntry 排行榜中的一行
type ScoreEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Store 每个玩家的最高分
type Store struct {
	db *sql.DB
}

func executeSQL(db *sql.DB, sqlStatement string) error {
	_, err := db.Exec(sqlStatement)
	if err != nil {
		return fmt.Errorf("error executing SQL statement: %s: %w", sqlStatement, err)
	}
	return nil
}

// InitializeDatabase 建表
func InitializeDatabase(db *sql.DB) error {
	for _, stmt := range []string{createBestScoresTableSQL, createBestScoresIndexSQL} {
		if err := executeSQL(db, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Open 打开（或创建）分数数据库
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := InitializeDatabase(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordScore 记录一局的最终分数，保留每个玩家的最高分
func (s *Store) RecordScore(username string, score int) error {
	if username == "" {
		return fmt.Errorf("empty username")
	}
	if _, err := s.db.Exec(upsertBestScoreSQL, username, score); err != nil {
		return fmt.Errorf("record score for %s: %w", username, err)
	}
	log.Printf("score recorded, username[%v] score[%v]", username, score)
	return nil
}

// BestScore 返回玩家的最高分，没有记录时 ok 为 false
func (s *Store) BestScore(username string) (score int, ok bool, err error) {
	err = s.db.QueryRow("SELECT Score FROM BestScores WHERE Username = ?", username).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

// BestScores 读出整张表
func (s *Store) BestScores() (map[string]int, error) {
	rows, err := s.db.Query("SELECT Username, Score FROM BestScores")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string]int)
	for rows.Next() {
		var e ScoreEntry
		if err := rows.Scan(&e.Username, &e.Score); err != nil {
			return nil, err
		}
		scores[e.Username] = e.Score
	}
	return scores, rows.Err()
}

// TopScores 排行榜，分数从高到低
func (s *Store) TopScores(limit int) ([]ScoreEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query("SELECT Username, Score FROM BestScores ORDER BY Score DESC, Username ASC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ScoreEntry
	for rows.Next() {
		var e ScoreEntry
		if err := rows.Scan(&e.Username, &e.Score); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
