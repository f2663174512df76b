package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"

	errUtils "github.com/nimbusdfir/nimbus/errors"
)

// Subscription is the subset of subscription attributes shown by the
// connection test.
type Subscription struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// HelloResult is the outcome of the Azure connection test.
type HelloResult struct {
	Subscriptions []Subscription `json:"subscriptions"`
}

// Hello verifies that ambient Azure credentials resolve and can list
// subscriptions. It is the first command to run on a new workstation.
func Hello(ctx context.Context) (*HelloResult, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to resolve Azure credentials: %v", errUtils.ErrNotLoggedIn, err)
	}

	client, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, err
	}

	result := &HelloResult{}
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list subscriptions: %v", errUtils.ErrNotLoggedIn, err)
		}
		for _, sub := range page.Value {
			s := Subscription{}
			if sub.SubscriptionID != nil {
				s.ID = *sub.SubscriptionID
			}
			if sub.DisplayName != nil {
				s.Name = *sub.DisplayName
			}
			if sub.State != nil {
				s.State = string(*sub.State)
			}
			result.Subscriptions = append(result.Subscriptions, s)
		}
	}

	if len(result.Subscriptions) == 0 {
		return nil, fmt.Errorf("%w: no subscriptions visible to the current credential", errUtils.ErrNoResults)
	}

	return result, nil
}
