package evidence

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	awsres "github.com/nimbusdfir/nimbus/pkg/aws"
)

func TestWriteIsolationReport(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 5, 42, 0, time.UTC)
	result := &awsres.IsolationResult{
		InstanceID:       "i-0abc",
		InstanceName:     "web-1",
		QuarantineSGID:   "sg-quarantine",
		QuarantineSGName: "ec2-quarantine-sg",
		OriginalSGIDs:    []string{"sg-1", "sg-2"},
		BackupFile:       "/tmp/i-0abc_sg_backup.json",
		IsolatedAt:       now,
	}
	header := Header{Operator: "analyst", Hostname: "forensics-ws", Region: "us-east-1", Account: "123456789012"}

	path, err := WriteIsolationReport(result, header, t.TempDir(), now)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)

	assert.Contains(t, report, "CHAIN OF CUSTODY")
	assert.Contains(t, report, "i-0abc")
	assert.Contains(t, report, "web-1")
	assert.Contains(t, report, "analyst@forensics-ws")
	assert.Contains(t, report, "sg-quarantine (ec2-quarantine-sg)")
	assert.Contains(t, report, "sg-1, sg-2")
	assert.Contains(t, report, "/tmp/i-0abc_sg_backup.json")
	assert.Contains(t, report, "Do NOT stop or terminate")
}

func TestWriteSnapshotReport(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 5, 42, 0, time.UTC)
	result := &awsres.SnapshotResult{
		InstanceID: "i-0abc",
		CaseNumber: "4711",
		CreatedAt:  now,
		Snapshots: []awsres.EvidenceSnapshot{
			{SnapshotID: "snap-1", VolumeID: "vol-root", Device: "/dev/xvda", Description: "CASE-4711-EVIDENCE-SNAPSHOT-i-0abc-/dev/xvda-20240315_090542"},
		},
	}
	header := NewHeader("eu-west-1", "123456789012")

	path, err := WriteSnapshotReport(result, header, t.TempDir(), now)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)

	assert.Contains(t, report, "EBS EVIDENCE SNAPSHOT")
	assert.Contains(t, report, "Case number:    4711")
	assert.Contains(t, report, "snap-1")
	assert.Contains(t, report, "vol-root")
	assert.Contains(t, report, "/dev/xvda")
	assert.Contains(t, report, "eu-west-1")
}
