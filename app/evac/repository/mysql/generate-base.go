package mysql

// generateSQLBase is the query list of SQL statements required to build
// the evacuation job state backend.
var generateSQLBase = []string{
	`
		CREATE TABLE IF NOT EXISTS evacuate_job (
			ej_id varchar(32) CHARACTER SET ascii NOT NULL,
			ej_source varchar(64) CHARACTER SET ascii NOT NULL,
			ej_state varchar(16) CHARACTER SET ascii NOT NULL,
			ej_mode varchar(16) CHARACTER SET ascii NOT NULL,
			ej_total bigint unsigned NOT NULL DEFAULT 0,
			ej_skipped bigint unsigned NOT NULL DEFAULT 0,
			ej_complete bigint unsigned NOT NULL DEFAULT 0,
			ej_failed bigint unsigned NOT NULL DEFAULT 0,
			ej_created_at datetime NOT NULL,
			ej_updated_at datetime NOT NULL,
			PRIMARY KEY (ej_id)
		) ENGINE=InnoDB DEFAULT CHARSET=ascii
	`,
	`
		CREATE TABLE IF NOT EXISTS evacuate_object (
			eo_id bigint unsigned NOT NULL AUTO_INCREMENT,
			eo_job varchar(32) CHARACTER SET ascii NOT NULL,
			eo_key varchar(255) NOT NULL,
			eo_size bigint unsigned NOT NULL,
			eo_replicas text NOT NULL,
			eo_status varchar(16) CHARACTER SET ascii NOT NULL,
			eo_destination varchar(64) CHARACTER SET ascii NOT NULL DEFAULT '',
			eo_assignment varchar(32) CHARACTER SET ascii NOT NULL DEFAULT '',
			eo_reconcile tinyint(1) NOT NULL DEFAULT 0,
			PRIMARY KEY (eo_id),
			UNIQUE KEY (eo_job, eo_key),
			FOREIGN KEY (eo_job) REFERENCES evacuate_job (ej_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8
	`,
}
