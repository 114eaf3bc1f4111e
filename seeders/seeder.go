package seeders

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SeedUsers наполняет справочник сотрудников.
func SeedUsers(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  Запуск наполнения пользователей...")

	if err := seedUsers(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения Пользователей (Users): %v", err)
	}
	log.Println("✅ Наполнение пользователей завершено!")
}

// SeedDemoPark заводит демонстрационный парк оборудования.
func SeedDemoPark(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  Запуск наполнения парка оборудования...")

	if err := seedGauges(ctx, db); err != nil {
		log.Fatalf("❌ Ошибка наполнения Оборудования (Gauges): %v", err)
	}
	log.Println("✅ Наполнение парка оборудования завершено!")
}
