// Command seed inserts demo gestors, leads and companies for local
// development. Running it twice is safe: users upsert on email and demo
// leads are only inserted when the table is empty.
package main

import (
	"context"

	"lapublica_backend/internal/assignment/domain"
	"lapublica_backend/platform/config"
	"lapublica_backend/platform/db"
	"lapublica_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type seedUser struct {
	name  string
	email string
	role  string
}

type seedLead struct {
	companyName      string
	contactName      string
	estimatedRevenue float64
	companySize      string
	sector           string
	priority         string
}

var seedUsers = []seedUser{
	{"Laura Admin", "laura@lapublica.cat", domain.RoleAdmin},
	{"Gerard Gestió", "gerard@lapublica.cat", domain.RoleAdminGestio},
	{"Carla Comercial", "carla@lapublica.cat", domain.RoleCRMComercial},
	{"Pau Estàndard", "pau@lapublica.cat", domain.RoleGestorEstandard},
	{"Núria Estratègic", "nuria@lapublica.cat", domain.RoleGestorEstrategic},
	{"Oriol Enterprise", "oriol@lapublica.cat", domain.RoleGestorEnterprise},
}

var seedLeads = []seedLead{
	{"Fusteria Vila SL", "Jordi Vila", 18000, "1-10", "Fusteria", "LOW"},
	{"Construccions Mar SA", "Marta Ferrer", 75000, "50-200", "Construcció", "MEDIUM"},
	{"Grup Hoteler Llevant", "Anna Puig", 240000, "200+", "Hostaleria", "HIGH"},
	{"Tallers Roca", "Pere Roca", 32000, "11-50", "Automoció", "MEDIUM"},
	{"Distribucions Ebre", "Clara Soler", 120000, "50-200", "Logística", "HIGH"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("seeding demo data")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	for _, u := range seedUsers {
		if err := upsertUser(ctx, pool, u); err != nil {
			log.Error("failed to seed user", "email", u.email, "error", err)
			return
		}
	}
	log.Info("seeded users", "count", len(seedUsers))

	inserted, err := insertLeadsIfEmpty(ctx, pool)
	if err != nil {
		log.Error("failed to seed leads", "error", err)
		return
	}
	log.Info("seeded leads", "count", inserted)

	log.Info("demo data ready")
}

func upsertUser(ctx context.Context, pool *pgxpool.Pool, u seedUser) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO users (name, email, role, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			is_active = TRUE,
			updated_at = now()`,
		u.name, u.email, u.role,
	)
	return err
}

func insertLeadsIfEmpty(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM leads`).Scan(&existing); err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	for _, l := range seedLeads {
		_, err := pool.Exec(ctx, `
			INSERT INTO leads (company_name, contact_name, estimated_revenue, company_size, sector, priority, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'NEW')`,
			l.companyName, l.contactName, l.estimatedRevenue, l.companySize, l.sector, l.priority,
		)
		if err != nil {
			return 0, err
		}
	}
	return len(seedLeads), nil
}
