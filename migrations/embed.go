// Пакет migrations несёт встроенные SQL-миграции схемы.
package migrations

import "embed"

//go:embed *.sql
var Embed embed.FS
