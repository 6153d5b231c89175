// Package catalog реализует каталог учебных ресурсов: предметы
// и вложенные в них материалы со счётчиками обращений.
// models.go описывает структуры каталога.
package catalog

// Subject — предмет (категория). Название уникально,
// сравнение регистрозависимое.
type Subject struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// Resource — материал внутри предмета: конспект, презентация, билеты.
// Link — ссылка на сам файл; AccessCount растёт при каждой выдаче
// материала пользователю.
type Resource struct {
	ID          int64  `db:"id"`
	SubjectID   int64  `db:"subject_id"`
	Title       string `db:"title"`
	Link        string `db:"link"`
	AccessCount int64  `db:"access_count"`
}

// SubjectInfo — предмет с числом материалов, для меню каталога.
type SubjectInfo struct {
	Subject
	ResourceCount int
}

// ImportRecord — одна запись пакетной загрузки. Парсинг файла —
// забота транспорта, сюда приходит уже разобранная структура.
type ImportRecord struct {
	Subject string `json:"subject_code"`
	Title   string `json:"title"`
	Link    string `json:"link"`
}

// ImportResult — статус одной записи пакета. Пакет не атомарен:
// каждая запись проходит или падает независимо.
type ImportResult struct {
	Index int
	Err   error
}
