package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type DB struct {
	Host string
	Port int
	User string
	Pass string
	Name string
}

type MQ struct {
	Host string
	Port int
	User string
	Pass string
}

type Remote struct {
	BaseURL   string
	TimeoutMS int
}

type POS struct {
	TakeawayTableID string
	VATPercent      int
	SnapshotPath    string
	SnapshotSeconds int
}

type App struct {
	Database DB
	Rabbit   MQ
	Remote   Remote
	POS      POS
}

// Load reads the two-level yaml-ish config file (same shallow format the
// rest of the deploy tooling writes: "section:" lines followed by
// "key: value" pairs), then lets environment variables override secrets.
// A .env file next to the binary is honored if present.
func Load(path string) (App, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return App{}, err
	}
	a := defaults()
	var cur string
	for _, ln := range strings.Split(string(b), "\n") {
		line := strings.TrimSpace(ln)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, ":") {
			cur = strings.TrimSuffix(line, ":")
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		k := strings.TrimSpace(parts[0])
		v := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		switch cur {
		case "database":
			assignDB(&a.Database, k, v)
		case "rabbitmq":
			assignMQ(&a.Rabbit, k, v)
		case "remote":
			assignRemote(&a.Remote, k, v)
		case "pos":
			assignPOS(&a.POS, k, v)
		}
	}

	_ = godotenv.Load()
	applyEnv(&a)
	return a, nil
}

func defaults() App {
	return App{
		Remote: Remote{TimeoutMS: 5000},
		POS: POS{
			TakeawayTableID: "takeaway",
			VATPercent:      10,
			SnapshotPath:    "mixipos-orders.json",
			SnapshotSeconds: 30,
		},
	}
}

func assignDB(d *DB, k, v string) {
	switch k {
	case "host":
		d.Host = v
	case "port":
		d.Port = atoi(v)
	case "user":
		d.User = v
	case "password":
		d.Pass = v
	case "database":
		d.Name = v
	}
}

func assignMQ(m *MQ, k, v string) {
	switch k {
	case "host":
		m.Host = v
	case "port":
		m.Port = atoi(v)
	case "user":
		m.User = v
	case "password":
		m.Pass = v
	}
}

func assignRemote(r *Remote, k, v string) {
	switch k {
	case "base_url":
		r.BaseURL = v
	case "timeout_ms":
		r.TimeoutMS = atoi(v)
	}
}

func assignPOS(p *POS, k, v string) {
	switch k {
	case "takeaway_table_id":
		p.TakeawayTableID = v
	case "vat_percent":
		p.VATPercent = atoi(v)
	case "snapshot_path":
		p.SnapshotPath = v
	case "snapshot_seconds":
		p.SnapshotSeconds = atoi(v)
	}
}

func applyEnv(a *App) {
	if v := os.Getenv("MIXIPOS_DB_PASSWORD"); v != "" {
		a.Database.Pass = v
	}
	if v := os.Getenv("MIXIPOS_MQ_PASSWORD"); v != "" {
		a.Rabbit.Pass = v
	}
	if v := os.Getenv("MIXIPOS_REMOTE_URL"); v != "" {
		a.Remote.BaseURL = v
	}
}

func atoi(s string) int { n, _ := strconv.Atoi(s); return n }

// FindConfig probes the conventional locations.
func FindConfig() (string, error) {
	for _, p := range []string{"config.yaml", "deploy/config.example.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}

// Validate checks the sections a given mode needs.
func (a App) Validate(needDB, needMQ, needRemote bool) error {
	if needDB && a.Database.Host == "" {
		return errors.New("invalid config: missing database host")
	}
	if needMQ && a.Rabbit.Host == "" {
		return errors.New("invalid config: missing rabbitmq host")
	}
	if needRemote && a.Remote.BaseURL == "" {
		return errors.New("invalid config: missing remote base_url")
	}
	return nil
}
