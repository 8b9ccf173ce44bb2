package migrations

func init() {
	Migrations.MustRegister(execFile("catalog_up.sql"), execFile("catalog_down.sql"))
}
