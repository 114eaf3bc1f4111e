package seeders

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

func seedUsers(ctx context.Context, db *pgxpool.Pool) error {
	log.Println("  - Наполнение таблицы 'users'...")

	query := `INSERT INTO users (fio, position) SELECT $1, $2
			  WHERE NOT EXISTS (SELECT 1 FROM users WHERE fio = $1)`

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, u := range usersData {
		if _, err := tx.Exec(ctx, query, u.Fio, u.Position); err != nil {
			log.Printf("Ошибка при вставке пользователя '%s': %v", u.Fio, err)
			return err
		}
	}

	return tx.Commit(ctx)
}
