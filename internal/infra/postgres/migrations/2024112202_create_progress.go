package migrations

func init() {
	Migrations.MustRegister(execFile("progress_up.sql"), execFile("progress_down.sql"))
}
