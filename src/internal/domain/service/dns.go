package service

import (
	"context"

	"github.com/kodflow/gameops/src/internal/infrastructure/console"
)

// DNS points records at cloud instances.
type DNS struct {
	hosts  HostResolver
	writer DNSWriter
}

// NewDNS creates the dns task set.
func NewDNS(hosts HostResolver, writer DNSWriter) *DNS {
	return &DNS{hosts: hosts, writer: writer}
}

// Point sets record's A value to the public address of the instance named host.
func (d *DNS) Point(ctx context.Context, record, host string) (string, error) {
	ip, err := d.hosts.Resolve(ctx, host)
	if err != nil {
		return "", err
	}
	console.Step("Pointing %s at %s", record, ip)
	if err := d.writer.PointA(ctx, record, ip); err != nil {
		return "", err
	}
	return ip, nil
}
