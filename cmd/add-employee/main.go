// Command add-employee provisions an employee with a hashed password.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/config"
	"github.com/garyjia/expense-claims/internal/container"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	id := flag.Int64("id", 0, "employee identifier (login username)")
	first := flag.String("first", "", "first name")
	last := flag.String("last", "", "last name")
	password := flag.String("password", "", "initial password")
	department := flag.String("department", "", "department code (up to 3 characters)")
	departmentName := flag.String("department-name", "", "department name, used when the department is created")
	supervisor := flag.Int64("supervisor", 0, "supervisor employee identifier")
	flag.Parse()

	if *id <= 0 || *password == "" {
		fmt.Fprintln(os.Stderr, "Usage: add-employee -id <n> -password <pw> [-first name] [-last name] [-department code] [-supervisor id]")
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
		Service:    "add-employee",
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

	if err := addEmployee(ctx, c, employeeInput{
		ID:             *id,
		FirstName:      *first,
		LastName:       *last,
		Password:       *password,
		Department:     strings.ToUpper(strings.TrimSpace(*department)),
		DepartmentName: *departmentName,
		SupervisorID:   *supervisor,
	}); err != nil {
		msg := "Failed to add employee"
		if errors.Is(err, port.ErrConflict) {
			msg = "Employee already exists or references an unknown supervisor"
		}
		logger.Error(msg, zap.Int64("employee_id", *id), zap.Error(err))
		c.Close()
		os.Exit(1)
	}

	logger.Info("Employee added", zap.Int64("employee_id", *id))
}

type employeeInput struct {
	ID             int64
	FirstName      string
	LastName       string
	Password       string
	Department     string
	DepartmentName string
	SupervisorID   int64
}

func addEmployee(ctx context.Context, c *container.Container, in employeeInput) error {
	repos := c.Repositories()

	hash, err := c.Auth().Hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	employee := &entity.Employee{
		EmployeeID:   in.ID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
	}
	if in.SupervisorID > 0 {
		employee.SupervisorID = &in.SupervisorID
	}

	return c.DB().WithTransaction(ctx, func(txCtx context.Context) error {
		if in.Department != "" {
			if len(in.Department) > 3 {
				return fmt.Errorf("department code %q longer than 3 characters", in.Department)
			}
			dept, err := repos.Department.GetByCode(txCtx, in.Department)
			if err != nil {
				return fmt.Errorf("load department: %w", err)
			}
			if dept == nil {
				if err := repos.Department.Upsert(txCtx, &entity.Department{
					DepartmentCode: in.Department,
					DepartmentName: in.DepartmentName,
				}); err != nil {
					return fmt.Errorf("create department: %w", err)
				}
			}
			employee.DepartmentCode = &in.Department
		}

		if err := repos.Employee.Create(txCtx, employee); err != nil {
			return fmt.Errorf("create employee: %w", err)
		}
		return nil
	})
}
