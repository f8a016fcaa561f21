package sqlite

// Schema DDL for all collections. Tables are created on Open and preserved
// across runs; no foreign keys, cascades run at the application level.
const (
	createEntities = `CREATE TABLE IF NOT EXISTS entities (
    entity_id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    completed INTEGER NOT NULL DEFAULT 0,
    priority TEXT NOT NULL DEFAULT '',
    due_date TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '[]',
    people TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);`

	createBoards = `CREATE TABLE IF NOT EXISTS boards (
    board_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    groups TEXT NOT NULL DEFAULT '[]',
    rows TEXT NOT NULL DEFAULT '[]',
    columns TEXT NOT NULL DEFAULT '[]',
    next_row_id INTEGER NOT NULL DEFAULT 0,
    next_column_id INTEGER NOT NULL DEFAULT 0,
    next_group_id INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createPeople = `CREATE TABLE IF NOT EXISTS people (
    person_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    last_interaction TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_people_name ON people(name);`

	createTags = `CREATE TABLE IF NOT EXISTS tags (
    tag_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name);`

	createCollections = `CREATE TABLE IF NOT EXISTS collections (
    collection_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    entity_ids TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createPositions = `CREATE TABLE IF NOT EXISTS positions (
    position_id TEXT PRIMARY KEY,
    entity_id TEXT NOT NULL,
    board_id TEXT NOT NULL,
    context TEXT NOT NULL,
    row_id TEXT NOT NULL DEFAULT '',
    column_key TEXT NOT NULL DEFAULT '',
    ord INTEGER NOT NULL DEFAULT 0,
    UNIQUE (entity_id, board_id, context)
);
CREATE INDEX IF NOT EXISTS idx_positions_entity ON positions(entity_id);
CREATE INDEX IF NOT EXISTS idx_positions_board ON positions(board_id);
CREATE INDEX IF NOT EXISTS idx_positions_cell ON positions(board_id, context, row_id, column_key);`

	createWeeklyItems = `CREATE TABLE IF NOT EXISTS weekly_items (
    item_id TEXT PRIMARY KEY,
    week_key TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    day TEXT NOT NULL,
    ord INTEGER NOT NULL DEFAULT 0,
    UNIQUE (week_key, entity_id)
);
CREATE INDEX IF NOT EXISTS idx_weekly_week ON weekly_items(week_key);
CREATE INDEX IF NOT EXISTS idx_weekly_entity ON weekly_items(entity_id);`

	createRelationships = `CREATE TABLE IF NOT EXISTS relationships (
    relationship_id TEXT PRIMARY KEY,
    entity_id TEXT NOT NULL,
    related_id TEXT NOT NULL,
    relationship_type TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relationships_entity ON relationships(entity_id);
CREATE INDEX IF NOT EXISTS idx_relationships_related ON relationships(related_id);`
)

// schemaSQL is the full DDL executed on Open.
var schemaSQL = createEntities + "\n" +
	createBoards + "\n" +
	createPeople + "\n" +
	createTags + "\n" +
	createCollections + "\n" +
	createPositions + "\n" +
	createWeeklyItems + "\n" +
	createRelationships
