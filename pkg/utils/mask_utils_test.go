package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskCommandLine(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		args     []string
		expected string
	}{
		{
			name:     "no secrets",
			command:  "az",
			args:     []string{"vm", "list", "--output", "json"},
			expected: "az vm list --output json",
		},
		{
			name:     "admin password flag",
			command:  "az",
			args:     []string{"vm", "create", "--admin-password", "hunter2"},
			expected: "az vm create --admin-password ********",
		},
		{
			name:     "long password flag",
			command:  "mysql",
			args:     []string{"--password", "hunter2", "-u", "root"},
			expected: "mysql --password ******** -u root",
		},
		{
			name:     "inline mysql password",
			command:  "mysql",
			args:     []string{"-u", "root", "-phunter2"},
			expected: "mysql -u root -p********",
		},
		{
			name:     "bare -p flag masks following arg",
			command:  "mysql",
			args:     []string{"-p", "hunter2"},
			expected: "mysql -p ********",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskCommandLine(tt.command, tt.args...))
		})
	}
}
