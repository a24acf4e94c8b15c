// Package test provides testing utilities for the web front, including test
// containers for MongoDB and for a mail catcher.
package test

import (
	"context"
	"fmt"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// MailSMTPPort is the SMTP port used by the mail test container.
	MailSMTPPort = "1025"
	// MailAPIPort is the API port used by the mail test container.
	MailAPIPort = "8025"
)

// StartMailService starts a MailHog container to receive alert emails.
func StartMailService(ctx context.Context) (testcontainers.Container, error) {
	smtpPort := fmt.Sprintf("%s/tcp", MailSMTPPort)
	apiPort := fmt.Sprintf("%s/tcp", MailAPIPort)
	return testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mailhog/mailhog",
				ExposedPorts: []string{smtpPort, apiPort},
				WaitingFor: wait.ForAll(
					wait.ForListeningPort(nat.Port(smtpPort)),
					wait.ForListeningPort(nat.Port(apiPort)),
				),
			},
			Started: true,
		})
}

// MailEndpoints returns the host, SMTP port and API base URL of a mail
// container.
func MailEndpoints(ctx context.Context, c testcontainers.Container) (host string, smtpPort int, apiURL string, err error) {
	host, err = c.Host(ctx)
	if err != nil {
		return "", 0, "", err
	}
	smtp, err := c.MappedPort(ctx, nat.Port(MailSMTPPort+"/tcp"))
	if err != nil {
		return "", 0, "", err
	}
	api, err := c.MappedPort(ctx, nat.Port(MailAPIPort+"/tcp"))
	if err != nil {
		return "", 0, "", err
	}
	return host, smtp.Int(), fmt.Sprintf("http://%s:%s", host, api.Port()), nil
}
