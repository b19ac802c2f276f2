// pkg/n8n/credentials.go

package n8n

import (
	"fmt"
	"strings"
	"time"
)

// Credentials is the plaintext snapshot written next to the descriptor at
// generation time. It is created once and never rewritten; disposal is the
// operator's responsibility.
type Credentials struct {
	Timestamp        time.Time
	ServerAddress    string
	DatabasePassword string
	AdminUsername    string
	AdminPassword    string
	AccessURL        string
}

// Render produces the file content in the key: value layout operators expect.
func (c *Credentials) Render() string {
	var sb strings.Builder
	sb.WriteString("n8n deployment credentials\n")
	sb.WriteString(fmt.Sprintf("generated: %s\n", c.Timestamp.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("server: %s\n", c.ServerAddress))
	sb.WriteString(fmt.Sprintf("database password: %s\n", c.DatabasePassword))
	sb.WriteString(fmt.Sprintf("admin username: %s\n", c.AdminUsername))
	sb.WriteString(fmt.Sprintf("admin password: %s\n", c.AdminPassword))
	sb.WriteString(fmt.Sprintf("access url: %s\n", c.AccessURL))
	return sb.String()
}
