// Package evidence renders chain-of-custody reports for the forensic
// preservation commands.
package evidence

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	awsres "github.com/nimbusdfir/nimbus/pkg/aws"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
	u "github.com/nimbusdfir/nimbus/pkg/utils"
)

// Header identifies who ran a preservation action and where.
type Header struct {
	Operator string
	Hostname string
	Region   string
	Account  string
}

// NewHeader fills a Header from the environment.
func NewHeader(region string, account string) Header {
	operator := os.Getenv("USER")
	if operator == "" {
		operator = "unknown"
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return Header{Operator: operator, Hostname: hostname, Region: region, Account: account}
}

const isolationTemplate = `======================================================================
EC2 INSTANCE ISOLATION - CHAIN OF CUSTODY REPORT
======================================================================
Generated:        {{ .Timestamp }}
Operator:         {{ .Header.Operator }}@{{ .Header.Hostname }}
AWS Account:      {{ .Header.Account }}
Region:           {{ .Header.Region }}

INSTANCE
  Instance ID:    {{ .Result.InstanceID }}
{{- if .Result.InstanceName }}
  Name:           {{ .Result.InstanceName }}
{{- end }}
  Isolated at:    {{ .Result.IsolatedAt.UTC.Format "2006-01-02T15:04:05Z07:00" }}

ISOLATION DETAILS
  Quarantine SG:  {{ .Result.QuarantineSGID }} ({{ .Result.QuarantineSGName }})
  Original SGs:   {{ join .Result.OriginalSGIDs ", " }}
  SG backup file: {{ .Result.BackupFile }}

ANALYST INSTRUCTIONS
  1. The instance can no longer send or receive network traffic.
  2. Do NOT stop or terminate the instance; memory contents would be lost.
  3. Take EBS evidence snapshots before any further action.
  4. To reverse the isolation, restore the security groups recorded in
     the backup file with ModifyInstanceAttribute.
======================================================================
`

const snapshotTemplate = `======================================================================
EBS EVIDENCE SNAPSHOT - CHAIN OF CUSTODY REPORT
======================================================================
Generated:        {{ .Timestamp }}
Operator:         {{ .Header.Operator }}@{{ .Header.Hostname }}
AWS Account:      {{ .Header.Account }}
Region:           {{ .Header.Region }}

INSTANCE
  Instance ID:    {{ .Result.InstanceID }}
{{- if .Result.InstanceName }}
  Name:           {{ .Result.InstanceName }}
{{- end }}
{{- if .Result.CaseNumber }}
  Case number:    {{ .Result.CaseNumber }}
{{- end }}

SNAPSHOTS ({{ len .Result.Snapshots }})
{{- range .Result.Snapshots }}
  - Snapshot:     {{ .SnapshotID }}
    Volume:       {{ .VolumeID }}
    Device:       {{ .Device }}
    Description:  {{ .Description }}
{{- end }}

ANALYST INSTRUCTIONS
  1. Snapshots are crash-consistent images taken while the instance ran.
  2. Verify each snapshot reaches the "completed" state before relying
     on it.
  3. Copy snapshots to the evidence account and restrict sharing.
  4. Record this report with the case file.
======================================================================
`

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

// WriteIsolationReport renders the isolation chain-of-custody report to
// outputDir and returns the path.
func WriteIsolationReport(result *awsres.IsolationResult, header Header, outputDir string, now time.Time) (string, error) {
	name := fmt.Sprintf("isolation_report_%s_%s.txt", result.InstanceID, u.Timestamp(now))
	return writeReport("isolation", isolationTemplate, result, header, filepath.Join(outputDir, name), now)
}

// WriteSnapshotReport renders the snapshot chain-of-custody report to
// outputDir and returns the path.
func WriteSnapshotReport(result *awsres.SnapshotResult, header Header, outputDir string, now time.Time) (string, error) {
	name := fmt.Sprintf("snapshot_report_%s_%s.txt", result.InstanceID, u.Timestamp(now))
	return writeReport("snapshot", snapshotTemplate, result, header, filepath.Join(outputDir, name), now)
}

func writeReport(kind string, tmpl string, result interface{}, header Header, path string, now time.Time) (string, error) {
	t, err := template.New(kind).Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	data := struct {
		Timestamp string
		Header    Header
		Result    interface{}
	}{
		Timestamp: now.UTC().Format(time.RFC3339),
		Header:    header,
		Result:    result,
	}

	if err := t.Execute(file, data); err != nil {
		_ = os.Remove(path)
		return "", err
	}

	log.Info("Chain-of-custody report written", "kind", kind, "file", path)
	return path, nil
}
