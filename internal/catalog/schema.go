package catalog

// schema is applied with CREATE TABLE IF NOT EXISTS on every Open rather
// than through a versioned migration runner. There is exactly one schema
// version; the catalog has never shipped a column change that needed one.
const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS comics (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS episodes (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL,
    comic_id   INTEGER NOT NULL REFERENCES comics(id),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(comic_id, name)
);

CREATE TABLE IF NOT EXISTS files (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT NOT NULL,
    content_hash TEXT NOT NULL DEFAULT '',
    episode_id   INTEGER NOT NULL REFERENCES episodes(id),
    access_count INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(episode_id, name)
);

CREATE TABLE IF NOT EXISTS tags (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS taggables (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    tag_id      INTEGER NOT NULL REFERENCES tags(id),
    target_kind TEXT NOT NULL CHECK(target_kind IN ('comic', 'episode', 'file')),
    target_id   INTEGER NOT NULL,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_episodes_comic_id ON episodes(comic_id);
CREATE INDEX IF NOT EXISTS idx_files_episode_id ON files(episode_id);
CREATE INDEX IF NOT EXISTS idx_taggables_tag_id ON taggables(tag_id);
`
