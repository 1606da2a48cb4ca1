// Command add-project provisions a project that claims can be charged to.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/config"
	"github.com/garyjia/expense-claims/internal/container"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	id := flag.Int64("id", 0, "project identifier, assigned automatically when 0")
	name := flag.String("name", "", "project name")
	status := flag.String("status", "active", "project status")
	budget := flag.String("budget", "0", "project budget")
	owner := flag.Int64("owner", 0, "owning employee identifier")
	lead := flag.Int64("lead", 0, "project lead employee identifier")
	flag.Parse()

	if *name == "" {
		fmt.Fprintln(os.Stderr, "Usage: add-project -name <name> [-id n] [-status s] [-budget amount] [-owner id] [-lead id]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
		Service:    "add-project",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}

	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer c.Close()

	project, err := addProject(ctx, c, projectInput{
		ID:      *id,
		Name:    *name,
		Status:  *status,
		Budget:  *budget,
		OwnerID: *owner,
		LeadID:  *lead,
	})
	if err != nil {
		msg := "Failed to add project"
		if errors.Is(err, port.ErrConflict) {
			msg = "Project already exists or references an unknown employee"
		}
		logger.Error(msg, zap.Int64("project_id", *id), zap.Error(err))
		c.Close()
		os.Exit(1)
	}

	logger.Info("Project added",
		zap.Int64("project_id", project.ProjectID),
		zap.String("name", project.ProjectName))
}

type projectInput struct {
	ID      int64
	Name    string
	Status  string
	Budget  string
	OwnerID int64
	LeadID  int64
}

func (in projectInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ID, validation.Min(int64(0))),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Status, validation.Length(0, 50)),
		validation.Field(&in.Budget, utils.NonNegativeAmount),
	)
}

func addProject(ctx context.Context, c *container.Container, in projectInput) (*entity.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Status = strings.TrimSpace(in.Status)
	in.Budget = strings.TrimSpace(in.Budget)
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}

	budget := decimal.Zero
	if in.Budget != "" {
		parsed, err := decimal.NewFromString(in.Budget)
		if err != nil {
			return nil, fmt.Errorf("invalid project: budget: %w", err)
		}
		budget = parsed.Round(2)
	}

	project := &entity.Project{
		ProjectID:     in.ID,
		ProjectName:   in.Name,
		ProjectStatus: in.Status,
		ProjectBudget: budget,
	}
	if in.OwnerID > 0 {
		project.EmployeeID = &in.OwnerID
	}
	if in.LeadID > 0 {
		project.ProjectLeadID = &in.LeadID
	}

	err := c.DB().WithTransaction(ctx, func(txCtx context.Context) error {
		if err := c.Repositories().Project.Create(txCtx, project); err != nil {
			return fmt.Errorf("create project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}
