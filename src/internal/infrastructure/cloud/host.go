package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/logger"
)

// HostResolver maps an instance Name tag to a public address.
type HostResolver struct {
	api EC2API
}

// NewHostResolver creates a resolver backed by api.
func NewHostResolver(api EC2API) *HostResolver {
	return &HostResolver{api: api}
}

// Resolve returns the public IP of the single running instance tagged name.
// No match, several matches, or a match without a public address is an error.
func (h *HostResolver) Resolve(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty host selector", errs.ErrTargetResolution)
	}

	input := &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("tag:Name"), Values: []string{name}},
			{Name: aws.String("instance-state-name"), Values: []string{"running"}},
		},
	}

	var matches []ec2types.Instance
	paginator := ec2.NewDescribeInstancesPaginator(h.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: describe instances for %q: %w", errs.ErrTargetResolution, name, err)
		}
		for _, r := range page.Reservations {
			matches = append(matches, r.Instances...)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no running instance named %q", errs.ErrTargetResolution, name)
	case 1:
	default:
		return "", fmt.Errorf("%w: %d running instances named %q", errs.ErrTargetResolution, len(matches), name)
	}

	inst := matches[0]
	ip := aws.ToString(inst.PublicIpAddress)
	if ip == "" {
		return "", fmt.Errorf("%w: instance %s named %q has no public address",
			errs.ErrTargetResolution, aws.ToString(inst.InstanceId), name)
	}

	logger.WithField("host", name).WithField("instance", aws.ToString(inst.InstanceId)).Debug("Resolved host")
	return ip, nil
}
