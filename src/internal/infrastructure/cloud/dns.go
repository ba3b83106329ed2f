package cloud

import (
	"context"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/sirupsen/logrus"

	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// DefaultTTL is the TTL of records written by PointA.
const DefaultTTL int64 = 300

// DNS writes records into one hosted zone.
type DNS struct {
	api    Route53API
	zoneID string
}

// NewDNS creates a DNS writer for zoneID.
func NewDNS(api Route53API, zoneID string) *DNS {
	return &DNS{api: api, zoneID: zoneID}
}

// PointA upserts an A record for record pointing at ip.
func (d *DNS) PointA(ctx context.Context, record, ip string) error {
	if d.zoneID == "" {
		return fmt.Errorf("%w: hosted zone id is not set", errs.ErrConfiguration)
	}
	if record == "" {
		return fmt.Errorf("%w: record name is empty", errs.ErrConfiguration)
	}
	if parsed := net.ParseIP(ip); parsed == nil || parsed.To4() == nil {
		return fmt.Errorf("%w: %q is not an IPv4 address", errs.ErrConfiguration, ip)
	}

	_, err := d.api.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(d.zoneID),
		ChangeBatch: &r53types.ChangeBatch{
			Comment: aws.String("gameops dns point"),
			Changes: []r53types.Change{{
				Action: r53types.ChangeActionUpsert,
				ResourceRecordSet: &r53types.ResourceRecordSet{
					Name:            aws.String(record),
					Type:            r53types.RRTypeA,
					TTL:             aws.Int64(DefaultTTL),
					ResourceRecords: []r53types.ResourceRecord{{Value: aws.String(ip)}},
				},
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", record, err)
	}

	logger.WithFields(logrus.Fields{"record": record, "ip": ip}).Info("Updated DNS record")
	return nil
}
