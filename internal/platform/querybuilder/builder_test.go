package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("user_id").
		From("patient_profiles").
		Where(Eq("user_id", "u1"), IsNull("deleted_at")).
		OrderBy("user_id").
		Limit(1).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT user_id FROM patient_profiles WHERE user_id = $1 AND deleted_at IS NULL ORDER BY user_id LIMIT 1"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "u1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilderRequiresTable(t *testing.T) {
	if _, _, err := Select("*").ToSQL(); err == nil {
		t.Fatalf("expected error without table")
	}
}

func TestInsertBuilderRejectsMismatchedValues(t *testing.T) {
	_, _, err := InsertInto("patient_profiles").
		Columns("user_id", "full_name").
		Values("u1").
		ToSQL()
	if err == nil {
		t.Fatalf("expected error for mismatched values")
	}
}

type profileRow struct {
	UserID    string  `db:"user_id"`
	FullName  *string `db:"full_name"`
	CreatedAt string  `db:"created_at"`
	Ignored   string `db:"-"`
}

func TestUpsertModel(t *testing.T) {
	name := "Ayu"
	query, args, err := UpsertModel("patient_profiles", profileRow{UserID: "u1", FullName: &name, CreatedAt: "now"}, Upsert{
		Target:    "(user_id) WHERE deleted_at IS NULL",
		Immutable: []string{"user_id", "created_at"},
		Overrides: map[string]string{"full_name": "COALESCE(EXCLUDED.full_name, patient_profiles.full_name)"},
		Extra:     []string{"deleted_at = NULL"},
	})
	if err != nil {
		t.Fatalf("build upsert: %v", err)
	}

	wantQuery := "INSERT INTO patient_profiles (user_id, full_name, created_at) VALUES ($1, $2, $3) " +
		"ON CONFLICT (user_id) WHERE deleted_at IS NULL DO UPDATE SET " +
		"full_name = COALESCE(EXCLUDED.full_name, patient_profiles.full_name), deleted_at = NULL"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[0] != "u1" || args[2] != "now" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpsertModelValidation(t *testing.T) {
	if _, _, err := UpsertModel("t", profileRow{}, Upsert{}); err == nil {
		t.Fatalf("expected error without conflict target")
	}
	if _, _, err := UpsertModel("t", (*profileRow)(nil), Upsert{Target: "(id)"}); err == nil {
		t.Fatalf("expected error for nil model")
	}
	if _, _, err := UpsertModel("t", 42, Upsert{Target: "(id)"}); err == nil {
		t.Fatalf("expected error for non-struct model")
	}
}
