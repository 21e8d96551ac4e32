package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"jobboard-billing/internal/config"
	"jobboard-billing/internal/domain/model"
	pg "jobboard-billing/internal/infra/db/postgres"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planUC := usecase.NewPlanUseCase(pg.NewPlanRepo(pool), logger)

	// If plans already exist, do nothing
	plans, err := planUC.List(ctx, "", true)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (%s, days=%d, posts=%s, applications=%s, price=%s %s)\n",
				p.Name, p.Audience, p.DurationDays, p.JobPostsLimit, p.ApplicationsLimit, p.Price.StringFixed(2), p.Currency)
		}
		return
	}

	// Default catalog
	seed := []usecase.CreatePlanInput{
		{Name: "Basic Job Post", Audience: model.AudienceEmployer, Price: decimal.NewFromInt(500), DurationDays: 30,
			Features: []string{"1 job post", "30 day listing"}, JobPostsLimit: model.Limit(1), ApplicationsLimit: model.Limit(0)},
		{Name: "Employer Pro", Audience: model.AudienceEmployer, Price: decimal.NewFromInt(2000), DurationDays: 30,
			Features: []string{"10 job posts", "featured listings"}, JobPostsLimit: model.Limit(10), ApplicationsLimit: model.Limit(0)},
		{Name: "Employer Unlimited", Audience: model.AudienceEmployer, Price: decimal.NewFromInt(5000), DurationDays: 90,
			Features: []string{"unlimited job posts"}, JobPostsLimit: model.Unlimited, ApplicationsLimit: model.Limit(0)},
		{Name: "Job Seeker Plus", Audience: model.AudienceJobseeker, Price: decimal.NewFromInt(150), DurationDays: 30,
			Features: []string{"20 applications"}, JobPostsLimit: model.Limit(0), ApplicationsLimit: model.Limit(20)},
		{Name: "Job Seeker Unlimited", Audience: model.AudienceJobseeker, Price: decimal.NewFromInt(400), DurationDays: 30,
			Features: []string{"unlimited applications"}, JobPostsLimit: model.Limit(0), ApplicationsLimit: model.Unlimited},
	}

	// The seeder acts as the bootstrap administrator.
	actor := model.Admin(1)
	for _, in := range seed {
		in.Currency = cfg.Billing.Currency
		p, err := planUC.Create(ctx, actor, in)
		if err != nil {
			log.Fatalf("create plan %q: %v", in.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, days=%d, price=%s %s)\n", p.Name, p.ID, p.DurationDays, p.Price.StringFixed(2), p.Currency)
	}

	fmt.Println("Seeding complete.")
}
