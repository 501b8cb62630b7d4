package postgres

// Schema maps the store onto concrete table and column names. Deployments
// migrated from the older singular/Spanish naming (turno, categoria,
// tiempo_prom_seg) point these at the legacy identifiers instead of
// renaming tables.
type Schema struct {
	TurnsTable        string
	ClientsTable      string
	CategoriesTable   string
	KiosksTable       string
	SequencesTable    string
	OutboxTable       string
	TurnEventsTable   string
	CategoryAvgColumn string
}

func DefaultSchema() Schema {
	return Schema{
		TurnsTable:        "turns",
		ClientsTable:      "clients",
		CategoriesTable:   "categories",
		KiosksTable:       "kiosks",
		SequencesTable:    "turn_sequences",
		OutboxTable:       "outbox_events",
		TurnEventsTable:   "turn_events",
		CategoryAvgColumn: "avg_service_seconds",
	}
}

func (s Schema) withDefaults() Schema {
	defaults := DefaultSchema()
	if s.TurnsTable == "" {
		s.TurnsTable = defaults.TurnsTable
	}
	if s.ClientsTable == "" {
		s.ClientsTable = defaults.ClientsTable
	}
	if s.CategoriesTable == "" {
		s.CategoriesTable = defaults.CategoriesTable
	}
	if s.KiosksTable == "" {
		s.KiosksTable = defaults.KiosksTable
	}
	if s.SequencesTable == "" {
		s.SequencesTable = defaults.SequencesTable
	}
	if s.OutboxTable == "" {
		s.OutboxTable = defaults.OutboxTable
	}
	if s.TurnEventsTable == "" {
		s.TurnEventsTable = defaults.TurnEventsTable
	}
	if s.CategoryAvgColumn == "" {
		s.CategoryAvgColumn = defaults.CategoryAvgColumn
	}
	return s
}
