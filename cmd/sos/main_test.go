package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sos-dispatch-service/internal/adapters/repositories"
	"sos-dispatch-service/internal/domain"
	"sos-dispatch-service/internal/platform/db"
	"strings"
	"testing"
	"time"
)

const testSeed = `[
  {"id": 1, "name": "Harbor General", "address": "1 Pier Rd", "phone": "+1 555 0100", "latitude": 40.7140, "longitude": -74.0070},
  {"id": 2, "name": "Midtown Medical", "address": "20 Main St", "phone": "+1 555 0101", "latitude": 40.7170, "longitude": -74.0060},
  {"id": 3, "name": "Riverside Clinic", "address": "7 River Ave", "phone": "", "latitude": 40.7200, "longitude": -74.0100},
  {"id": 4, "name": "Uptown Hospital", "address": "99 North Blvd", "phone": "+1 555 0103", "latitude": 40.8000, "longitude": -74.0000}
]`

// isolate points every config source at a scratch directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)

	seed := filepath.Join(dir, "hospitals.json")
	if err := os.WriteFile(seed, []byte(testSeed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	for _, key := range []string{"SOS_CONFIG", "REDIS_ADDR", "LOCATION_SOURCE", "CONTACT_SECONDS", "TICK_INTERVAL", "FINDER_RESULT_LIMIT"} {
		t.Setenv(key, "")
	}
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(dir, "sos.db"))
	t.Setenv("SEED_PATH", seed)
	t.Setenv("HOSPITAL_FINDER", "directory")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "sos "+version) {
		t.Fatalf("output = %q", out)
	}
}

func TestRunContactsEveryHospital(t *testing.T) {
	dir := isolate(t)

	out, err := execute(t, "",
		"run", "--lat", "40.7128", "--lon", "-74.0060",
		"--contact-seconds", "2", "--tick", "1ms",
	)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	for _, want := range []string{
		"[1/3] Contacting Harbor General",
		"[2/3] Contacting Midtown Medical",
		"[3/3] Contacting Riverside Clinic",
		"All 3 hospital(s) contacted",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Uptown Hospital") {
		t.Errorf("fourth hospital should not be contacted:\n%s", out)
	}

	conn, err := db.Open(context.Background(), db.DriverSQLite, filepath.Join(dir, "sos.db"))
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer conn.Close()

	records, err := repositories.NewSQLSessionStore(conn, db.DriverSQLite).ListSessions(context.Background(), 5)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Status != domain.StatusCompleted || records[0].Completion != domain.CompletedExhausted {
		t.Fatalf("record = %+v", records[0])
	}
	if len(records[0].Contacted) != 3 {
		t.Fatalf("contacted = %v", records[0].Contacted)
	}
}

func TestRunStopsOnEnter(t *testing.T) {
	isolate(t)

	out, err := execute(t, "\n",
		"run", "--lat", "40.7128", "--lon", "-74.0060",
		"--contact-seconds", "30", "--tick", "1s",
	)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Help received. 1 hospital(s) contacted.") {
		t.Fatalf("output:\n%s", out)
	}
}

func TestRunRequiresBothCoordinates(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "run", "--lat", "40.7128")
	if err == nil || !strings.Contains(err.Error(), "--lat and --lon") {
		t.Fatalf("err = %v", err)
	}
}

func TestRunReportsNoHospitals(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "run", "--lat", "-33.8688", "--lon", "151.2093", "--tick", "1ms")
	if err == nil || !strings.Contains(err.Error(), "sos: ") {
		t.Fatalf("err = %v", err)
	}
}

// chdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
