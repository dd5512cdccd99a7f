package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := RootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"simulate",
		"--workload", "../../../internal/scheduler/simulator/testdata/workload.yaml",
		"--scheduling", "../../../internal/scheduler/simulator/testdata/scheduling.yaml",
	})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Makespan:")
	assert.Contains(t, out.String(), "PRO")
}

func TestSimulateCmd_WorkloadRequired(t *testing.T) {
	cmd := RootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"simulate"})
	assert.Error(t, cmd.Execute())
}

func TestSimulateCmd_MissingWorkload(t *testing.T) {
	cmd := RootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"simulate", "--workload", "does-not-exist.yaml"})
	assert.Error(t, cmd.Execute())
}
