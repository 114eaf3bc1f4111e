package seeders

// Стартовые пользователи: кладовщик, метролог, контролёр ОТК и пара
// слесарей для обкатки сценариев выдачи.
type userSeed struct {
	Fio      string
	Position string
}

var usersData = []userSeed{
	{Fio: "Каримов Фаррух Шавкатович", Position: "Кладовщик ЦИС"},
	{Fio: "Рахимова Мунира Давлатовна", Position: "Метролог"},
	{Fio: "Саидов Джамшед Искандарович", Position: "Контролёр ОТК"},
	{Fio: "Носиров Умед Бахтиёрович", Position: "Слесарь-инструментальщик"},
	{Fio: "Холов Сухроб Рустамович", Position: "Слесарь-инструментальщик"},
}

// Демонстрационный парк оборудования. Номера генерирует движок, здесь
// только наименования.
type gaugeSeed struct {
	Name                    string
	Category                string
	Sealed                  bool
	CalibrationIntervalDays int
	Location                string
}

var gaugesData = []gaugeSeed{
	{Name: "Калибр-пробка М8х1.25 ПР", Category: "THREAD_GAUGE", Sealed: true, CalibrationIntervalDays: 365, Location: "Стеллаж А-1"},
	{Name: "Калибр-пробка М8х1.25 НЕ", Category: "THREAD_GAUGE", Sealed: true, CalibrationIntervalDays: 365, Location: "Стеллаж А-1"},
	{Name: "Калибр-кольцо М12х1.75 ПР", Category: "THREAD_GAUGE", Sealed: true, CalibrationIntervalDays: 365, Location: "Стеллаж А-2"},
	{Name: "Штангенциркуль ШЦ-I-150", Category: "HAND_TOOL", Sealed: false, CalibrationIntervalDays: 180, Location: "Стеллаж Б-3"},
	{Name: "Микрометр МК-25", Category: "HAND_TOOL", Sealed: false, CalibrationIntervalDays: 180, Location: "Стеллаж Б-3"},
	{Name: "Мера концевая КМД 2-Н1", Category: "CALIBRATION_STANDARD", Sealed: true, CalibrationIntervalDays: 730, Location: "Сейф метролога"},
}
