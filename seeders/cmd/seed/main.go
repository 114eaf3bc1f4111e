package main

import (
	"flag"
	"log"

	"gauge-system/pkg/config"
	"gauge-system/pkg/database/postgresql"
	"gauge-system/seeders"
)

func main() {
	log.Println("======================================================")
	log.Println("       🌱 СИСТЕМА СИДЕРОВ (Наполнение БД)           ")
	log.Println("======================================================")

	runUsers := flag.Bool("users", false, "Запустить наполнение справочника сотрудников")
	runGauges := flag.Bool("gauges", false, "Запустить наполнение демонстрационного парка оборудования")
	runAll := flag.Bool("all", false, "Запустить все сидеры (эквивалентно -users -gauges)")

	flag.Parse()

	if !*runUsers && !*runGauges && !*runAll {
		log.Println("❌ Не выбран ни один сидер для запуска.")
		log.Println("")
		log.Println("Доступные флаги:")
		flag.PrintDefaults()
		log.Println("")
		log.Println("Примеры использования:")
		log.Println("  go run ./seeders/cmd/seed/main.go -users")
		log.Println("  go run ./seeders/cmd/seed/main.go -all")
		log.Println("======================================================")
		return
	}

	cfg := config.New()
	db := postgresql.ConnectDB(cfg.Postgres.DSN)
	defer db.Close()

	if *runUsers || *runAll {
		seeders.SeedUsers(db)
	}
	if *runGauges || *runAll {
		seeders.SeedDemoPark(db)
	}

	log.Println("🏁 Все выбранные сидеры отработали.")
}
