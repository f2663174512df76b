package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
)

// RDSAPI is the subset of the RDS client the database commands depend on.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	StartDBInstance(ctx context.Context, params *rds.StartDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error)
	StopDBInstance(ctx context.Context, params *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error)
}

// DBInstance describes an RDS instance.
type DBInstance struct {
	ID             string `json:"db_instance_id"`
	Engine         string `json:"engine"`
	EngineVersion  string `json:"engine_version"`
	Status         string `json:"status"`
	Endpoint       string `json:"endpoint,omitempty"`
	Port           int32  `json:"port,omitempty"`
	MasterUsername string `json:"master_username"`
	DBName         string `json:"db_name,omitempty"`
	InstanceClass  string `json:"instance_class"`
	MultiAZ        bool   `json:"multi_az"`
	Encrypted      bool   `json:"encrypted"`
}

// ListDBInstances returns every RDS instance in the region.
func ListDBInstances(ctx context.Context, client RDSAPI) ([]DBInstance, error) {
	var instances []DBInstance
	var marker *string

	for {
		out, err := client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{Marker: marker})
		if err != nil {
			return nil, err
		}
		for _, db := range out.DBInstances {
			instances = append(instances, toDBInstance(db))
		}
		if out.Marker == nil {
			break
		}
		marker = out.Marker
	}

	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: no RDS instances in the region", errUtils.ErrNoResults)
	}
	return instances, nil
}

// GetDBInstance fetches one RDS instance by identifier.
func GetDBInstance(ctx context.Context, client RDSAPI, instanceID string) (*DBInstance, error) {
	out, err := client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(instanceID),
	})
	if err != nil {
		return nil, err
	}
	if len(out.DBInstances) == 0 {
		return nil, fmt.Errorf("%w: RDS instance %s", errUtils.ErrNotFound, instanceID)
	}

	db := toDBInstance(out.DBInstances[0])
	return &db, nil
}

func toDBInstance(db rdstypes.DBInstance) DBInstance {
	instance := DBInstance{
		ID:             aws.ToString(db.DBInstanceIdentifier),
		Engine:         aws.ToString(db.Engine),
		EngineVersion:  aws.ToString(db.EngineVersion),
		Status:         aws.ToString(db.DBInstanceStatus),
		MasterUsername: aws.ToString(db.MasterUsername),
		DBName:         aws.ToString(db.DBName),
		InstanceClass:  aws.ToString(db.DBInstanceClass),
		MultiAZ:        aws.ToBool(db.MultiAZ),
		Encrypted:      aws.ToBool(db.StorageEncrypted),
	}
	if db.Endpoint != nil {
		instance.Endpoint = aws.ToString(db.Endpoint.Address)
		instance.Port = aws.ToInt32(db.Endpoint.Port)
	}
	return instance
}

// StartDBInstance starts a stopped RDS instance.
func StartDBInstance(ctx context.Context, client RDSAPI, instanceID string) error {
	_, err := client.StartDBInstance(ctx, &rds.StartDBInstanceInput{
		DBInstanceIdentifier: aws.String(instanceID),
	})
	if err != nil {
		return err
	}
	log.Info("RDS instance starting", "instance", instanceID)
	return nil
}

// StopDBInstance stops a running RDS instance.
func StopDBInstance(ctx context.Context, client RDSAPI, instanceID string) error {
	_, err := client.StopDBInstance(ctx, &rds.StopDBInstanceInput{
		DBInstanceIdentifier: aws.String(instanceID),
	})
	if err != nil {
		return err
	}
	log.Info("RDS instance stopping", "instance", instanceID)
	return nil
}

// IsMySQLFamily reports whether the engine speaks the MySQL protocol.
func (d *DBInstance) IsMySQLFamily() bool {
	engine := strings.ToLower(d.Engine)
	return strings.Contains(engine, "mysql") || strings.Contains(engine, "mariadb") || strings.Contains(engine, "aurora-mysql")
}

// IsPostgresFamily reports whether the engine speaks the Postgres protocol.
func (d *DBInstance) IsPostgresFamily() bool {
	return strings.Contains(strings.ToLower(d.Engine), "postgres")
}

// ClientTool returns the interactive client binary for the engine.
func (d *DBInstance) ClientTool() (string, error) {
	switch {
	case d.IsMySQLFamily():
		return "mysql", nil
	case d.IsPostgresFamily():
		return "psql", nil
	default:
		return "", fmt.Errorf("%w: unsupported engine %s", errUtils.ErrNotFound, d.Engine)
	}
}

// DumpTool returns the dump binary for the engine.
func (d *DBInstance) DumpTool() (string, error) {
	switch {
	case d.IsMySQLFamily():
		return "mysqldump", nil
	case d.IsPostgresFamily():
		return "pg_dump", nil
	default:
		return "", fmt.Errorf("%w: unsupported engine %s", errUtils.ErrNotFound, d.Engine)
	}
}

// PasswordEnv returns the environment variable the engine's client reads
// the password from, so it never appears on a command line.
func (d *DBInstance) PasswordEnv() (string, error) {
	switch {
	case d.IsMySQLFamily():
		return "MYSQL_PWD", nil
	case d.IsPostgresFamily():
		return "PGPASSWORD", nil
	default:
		return "", fmt.Errorf("%w: unsupported engine %s", errUtils.ErrNotFound, d.Engine)
	}
}
