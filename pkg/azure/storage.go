package azure

import (
	"context"
	"fmt"

	errUtils "github.com/nimbusdfir/nimbus/errors"
	e "github.com/nimbusdfir/nimbus/internal/exec"
	log "github.com/nimbusdfir/nimbus/pkg/logger"
)

// StorageAccount is the subset of account attributes shown in listings.
type StorageAccount struct {
	Name          string `json:"name"`
	ResourceGroup string `json:"resourceGroup"`
	Location      string `json:"location"`
	Kind          string `json:"kind"`
	ID            string `json:"id"`
	SKU           struct {
		Name string `json:"name"`
	} `json:"sku"`
	AllowSharedKeyAccess *bool  `json:"allowSharedKeyAccess"`
	MinimumTLSVersion    string `json:"minimumTlsVersion"`
}

// ListStorageAccounts returns every storage account in the subscription.
func ListStorageAccounts(ctx context.Context) ([]StorageAccount, error) {
	var accounts []StorageAccount
	if err := e.ExecuteAzJSON(ctx, []string{"storage", "account", "list"}, &accounts); err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: no storage accounts in the current subscription", errUtils.ErrNoResults)
	}
	return accounts, nil
}

// CreateStorageAccount creates an AAD-only storage account: shared-key
// access disabled and a TLS 1.2 floor. The signed-in user is then granted
// Storage Blob Data Owner on it so blob operations work without keys.
func CreateStorageAccount(ctx context.Context, name string, resourceGroup string, location string) (*StorageAccount, error) {
	var account StorageAccount
	err := e.ExecuteAzJSON(ctx, []string{
		"storage", "account", "create",
		"--name", name,
		"--resource-group", resourceGroup,
		"--location", location,
		"--sku", "Standard_LRS",
		"--allow-shared-key-access", "false",
		"--min-tls-version", "TLS1_2",
	}, &account)
	if err != nil {
		return nil, err
	}

	log.Info("Storage account created", "name", name, "location", location)

	if err := assignBlobDataOwner(ctx, account.ID); err != nil {
		log.Warn("Role assignment failed, blob access may require manual RBAC setup", "error", err)
	}

	return &account, nil
}

func assignBlobDataOwner(ctx context.Context, scope string) error {
	objectID, err := e.ExecuteAzTSV(ctx, []string{"ad", "signed-in-user", "show", "--query", "id"})
	if err != nil {
		return err
	}

	_, err = e.ExecuteCommandAndReturnOutput(ctx, "az", []string{
		"role", "assignment", "create",
		"--role", "Storage Blob Data Owner",
		"--assignee-object-id", objectID,
		"--assignee-principal-type", "User",
		"--scope", scope,
		"--output", "none",
	}, nil)
	if err != nil {
		return err
	}

	log.Info("Granted Storage Blob Data Owner to the signed-in user")
	return nil
}

// DeleteStorageAccount removes a storage account.
func DeleteStorageAccount(ctx context.Context, name string, resourceGroup string) error {
	_, err := e.ExecuteCommandAndReturnOutput(ctx, "az", []string{
		"storage", "account", "delete",
		"--name", name,
		"--resource-group", resourceGroup,
		"--yes",
		"--output", "none",
	}, nil)
	if err != nil {
		return err
	}
	log.Info("Storage account deleted", "name", name)
	return nil
}
