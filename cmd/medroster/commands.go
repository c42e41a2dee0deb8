package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/medroster/internal/auth"
	"github.com/lalith-99/medroster/internal/config"
	"github.com/lalith-99/medroster/internal/models"
	"github.com/lalith-99/medroster/internal/scheduling"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			applied, err := a.db.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			if len(applied) == 0 {
				fmt.Println("database is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Println("applied", v)
			}
			return nil
		},
	}
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation sweep over past appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			raw, _ := cmd.Flags().GetString("tenant")

			tenantID := uuid.Nil
			if raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid --tenant: %w", err)
				}
				tenantID = id
			}

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.service(nil).Reconcile(ctx, tenantID, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("scanned=%d completed=%d expired=%d failed=%d\n",
				res.Scanned, res.Completed, res.Expired, res.Failed)
			return nil
		},
	}
	cmd.Flags().String("tenant", "", "limit the sweep to one tenant ID")
	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Tenant management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name>",
		Short: "Create a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			t, err := a.stores.Tenants.Create(ctx, args[0])
			if err != nil {
				return err
			}
			a.logger.Info("tenant created", zap.String("tenant_id", t.ID.String()), zap.String("name", t.Name))
			fmt.Println(t.ID)
			return nil
		},
	})
	return cmd
}

// tokenCmd mints a bearer token. Credential issuance lives outside this
// service; this is for operators and local development.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			user, _ := cmd.Flags().GetString("user")
			role, _ := cmd.Flags().GetString("role")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			tenantID, err := uuid.Parse(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			userID := uuid.New()
			if user != "" {
				if userID, err = uuid.Parse(user); err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
			}
			if !auth.Role(role).Valid() {
				return fmt.Errorf("invalid --role %q: want admin, staff or doctor", role)
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tok, err := auth.GenerateToken(auth.Identity{
				TenantID: tenantID,
				UserID:   userID,
				Role:     auth.Role(role),
			}, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().String("tenant", "", "tenant ID (required)")
	cmd.Flags().String("user", "", "user ID; a doctor token must carry the doctor's ID (default: random)")
	cmd.Flags().String("role", string(auth.RoleAdmin), "admin, staff or doctor")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create a demo tenant with doctors, patients and two weeks of rosters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return seed(ctx, a)
		},
	}
}

func seed(ctx context.Context, a *app) error {
	tenant, err := a.stores.Tenants.Create(ctx, "Demo Clinic")
	if err != nil {
		return err
	}
	admin := auth.Identity{TenantID: tenant.ID, UserID: uuid.New(), Role: auth.RoleAdmin}
	svc := a.service(nil)

	doctors := []*models.Doctor{
		{TenantID: tenant.ID, Name: "Dr. Amara Okafor", Email: "okafor@demo.clinic", Specialty: "General Practice"},
		{TenantID: tenant.ID, Name: "Dr. Lena Fischer", Email: "fischer@demo.clinic", Specialty: "Cardiology"},
	}
	for _, d := range doctors {
		if err := a.stores.Doctors.Create(ctx, d); err != nil {
			return err
		}
	}

	patients := []*models.Patient{
		{TenantID: tenant.ID, Name: "Noah Patel", Email: "noah@example.com", Phone: "555-0101"},
		{TenantID: tenant.ID, Name: "Mia Hernandez", Email: "mia@example.com", Phone: "555-0102"},
		{TenantID: tenant.ID, Name: "Sam Lee", Email: "sam@example.com", Phone: "555-0103"},
	}
	for _, p := range patients {
		if err := a.stores.Patients.Create(ctx, p); err != nil {
			return err
		}
	}

	if _, err := svc.Link(ctx, admin, doctors[0].ID, []uuid.UUID{patients[0].ID, patients[1].ID}); err != nil {
		return fmt.Errorf("link patients: %w", err)
	}

	start := time.Now().In(a.cfg.Timezone).Format(time.DateOnly)
	for _, d := range doctors {
		_, err := svc.BulkCreateRosters(ctx, admin, scheduling.BulkRosterRequest{
			RosterRequest: scheduling.RosterRequest{
				StaffID:   d.ID,
				Date:      start,
				StartTime: "09:00",
				EndTime:   "12:00",
				ShiftType: "morning",
				Location:  "Main clinic",
			},
			RepeatDays: scheduling.DefaultRepeatDays,
		})
		if err != nil {
			return fmt.Errorf("roster for %s: %w", d.Name, err)
		}
	}

	fmt.Println("tenant:", tenant.ID)
	for _, d := range doctors {
		fmt.Printf("doctor: %s %s\n", d.ID, d.Name)
	}
	for _, p := range patients {
		fmt.Printf("patient: %s %s\n", p.ID, p.Name)
	}
	return nil
}
