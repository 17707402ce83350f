package config

import (
	"fmt"
	"strconv"
	"strings"
)

// migration rewrites raw settings from version n to n+1.
type migration func(raw map[string]any) error

// migrations[i] upgrades schema version i+1 to i+2.
var migrations = []migration{
	migrateV1ToV2,
}

// schemaVersion reads the version of raw settings.
// Version 1 files carry a top-level "version" key instead of "schema_version".
func schemaVersion(raw map[string]any) (int, error) {
	if v, ok := raw["schema_version"]; ok {
		return toInt(v)
	}
	if v, ok := raw["version"]; ok {
		n, err := toInt(v)
		if err != nil {
			return 0, err
		}
		if n != 1 {
			return 0, fmt.Errorf("unsupported legacy version %d", n)
		}
		return 1, nil
	}
	return 0, fmt.Errorf("missing schema_version")
}

// Migrate upgrades raw settings in place to CurrentSchemaVersion.
// Returns the version it started from. Newer versions are rejected.
func Migrate(raw map[string]any) (int, error) {
	from, err := schemaVersion(raw)
	if err != nil {
		return 0, err
	}
	if from > CurrentSchemaVersion {
		return from, fmt.Errorf("schema_version %d is newer than supported %d", from, CurrentSchemaVersion)
	}
	if from < 1 {
		return from, fmt.Errorf("invalid schema_version %d", from)
	}

	for v := from; v < CurrentSchemaVersion; v++ {
		if err := migrations[v-1](raw); err != nil {
			return from, fmt.Errorf("migrate v%d to v%d: %w", v, v+1, err)
		}
	}
	raw["schema_version"] = CurrentSchemaVersion
	return from, nil
}

// migrateV1ToV2 moves auto_backup and backup_location into the backup block.
func migrateV1ToV2(raw map[string]any) error {
	backup, _ := raw["backup"].(map[string]any)
	if backup == nil {
		backup = map[string]any{}
	}

	if v, ok := raw["auto_backup"]; ok {
		backup["auto"] = v
		delete(raw, "auto_backup")
	}
	if v, ok := raw["backup_location"]; ok {
		backup["root"] = v
		delete(raw, "backup_location")
	}
	if _, ok := backup["root"]; !ok {
		backup["root"] = defaultBackupRoot
	}
	if _, ok := backup["headroom"]; !ok {
		backup["headroom"] = defaultHeadroom
	}
	raw["backup"] = backup

	if _, ok := raw["history"]; !ok {
		raw["history"] = map[string]any{"max_entries": defaultMaxEntries}
	}
	if _, ok := raw["log"]; !ok {
		raw["log"] = map[string]any{"level": defaultLogLevel, "format": defaultLogFormat}
	}

	delete(raw, "version")
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("parse version %q: %w", n, err)
		}
		return i, nil
	}
	return 0, fmt.Errorf("unexpected version type %T", v)
}
