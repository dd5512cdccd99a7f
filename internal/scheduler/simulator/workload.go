package simulator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	commonconfig "github.com/agentgate/agentgate/internal/common/config"
	"github.com/agentgate/agentgate/internal/scheduler/configuration"
)

// WorkloadSpec describes the jobs submitted during a simulation.
type WorkloadSpec struct {
	// Defaults to the name of the file the workload was read from.
	Name string `yaml:"name"`
	// Simulated time at which the simulation starts. Matters because of peak windows.
	StartTime time.Time     `yaml:"startTime"`
	Tenants   []*TenantSpec `yaml:"tenants"`
}

// TenantSpec describes a group of identical tenants, each of which submits Jobs jobs at regular intervals.
type TenantSpec struct {
	Name string `yaml:"name"`
	Tier string `yaml:"tier"`
	// Number of tenants in the group, named <name>-0, <name>-1, and so on. Defaults to 1.
	Replicas int `yaml:"replicas"`
	// Number of jobs submitted by each tenant.
	Jobs int `yaml:"jobs"`
	// Time from the start of the simulation to the first submission.
	StartOffset      time.Duration `yaml:"startOffset"`
	InterArrivalTime time.Duration `yaml:"interArrivalTime"`
	// How long each job runs once active.
	JobDuration time.Duration `yaml:"jobDuration"`
	// How long before submission each job was created, e.g., to model resubmitted work.
	JobAge time.Duration `yaml:"jobAge"`
}

func WorkloadSpecFromFilePath(filePath string) (*WorkloadSpec, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	rv, err := WorkloadSpecFromBytes(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to read WorkloadSpec %s", filePath)
	}

	// If no name is provided, set it to be the filename.
	if rv.Name == "" {
		fileName := filepath.Base(filePath)
		rv.Name = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	return rv, nil
}

func WorkloadSpecFromBytes(data []byte) (*WorkloadSpec, error) {
	rv := &WorkloadSpec{}
	if err := yaml.UnmarshalStrict(data, rv); err != nil {
		return nil, errors.WithStack(err)
	}
	initialiseWorkloadSpec(rv)
	if err := validateWorkloadSpec(rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// SchedulingConfigFromFilePath reads a SchedulingConfig from a yaml file laid out like the scheduling section of
// the application config.
func SchedulingConfigFromFilePath(filePath string) (configuration.SchedulingConfig, error) {
	config := configuration.SchedulingConfig{}
	v := viper.New()
	v.SetConfigFile(filePath)
	if err := v.ReadInConfig(); err != nil {
		err = errors.WithMessagef(err, "failed to read in SchedulingConfig %s", filePath)
		return config, errors.WithStack(err)
	}
	if err := v.Unmarshal(&config, commonconfig.DecodeHook(configuration.DecodeHooks()...)); err != nil {
		err = errors.WithMessagef(err, "failed to unmarshal SchedulingConfig %s", filePath)
		return config, errors.WithStack(err)
	}
	return config, nil
}

func initialiseWorkloadSpec(workloadSpec *WorkloadSpec) {
	if workloadSpec.StartTime.IsZero() {
		workloadSpec.StartTime = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	for i, tenant := range workloadSpec.Tenants {
		if tenant.Name == "" {
			tenant.Name = fmt.Sprintf("tenant-%d", i)
		}
		if tenant.Replicas == 0 {
			tenant.Replicas = 1
		}
	}
}

func validateWorkloadSpec(workloadSpec *WorkloadSpec) error {
	names := make(map[string]bool)
	for _, tenant := range workloadSpec.Tenants {
		if names[tenant.Name] {
			return errors.Errorf("duplicate tenant name %s", tenant.Name)
		}
		names[tenant.Name] = true
		if tenant.Tier == "" {
			return errors.Errorf("tenant %s has no tier", tenant.Name)
		}
		if tenant.Replicas < 0 || tenant.Jobs < 0 {
			return errors.Errorf("tenant %s has negative replicas or jobs", tenant.Name)
		}
		if tenant.JobDuration <= 0 {
			return errors.Errorf("tenant %s has non-positive job duration %s", tenant.Name, tenant.JobDuration)
		}
		if tenant.StartOffset < 0 || tenant.InterArrivalTime < 0 || tenant.JobAge < 0 {
			return errors.Errorf("tenant %s has a negative time offset", tenant.Name)
		}
	}
	return nil
}
