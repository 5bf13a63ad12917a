package models

import "github.com/uptrace/bun"

// Register tells bun about models it can't discover through relations alone.
// It must run before the first query that loads Book.Authors.
func Register(db *bun.DB) {
	db.RegisterModel((*BookAuthor)(nil))
}
