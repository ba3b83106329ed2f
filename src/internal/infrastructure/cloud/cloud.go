// Package cloud reaches the AWS services gameops depends on: EC2 for host lookup,
// SSM for secrets, Route53 for DNS and S3 for backups.
package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/kodflow/gameops/src/internal/domain/errs"
)

// EC2API is the subset of the EC2 client used by HostResolver.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// SSMAPI is the subset of the SSM client used by SecretStore.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Route53API is the subset of the Route53 client used by DNS.
type Route53API interface {
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// S3API is the subset of the S3 client used by Uploader.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Clients bundles the service clients built from one AWS configuration.
type Clients struct {
	EC2     EC2API
	SSM     SSMAPI
	Route53 Route53API
	S3      S3API
}

// LoadConfig resolves credentials the standard AWS way, pinned to region when set.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("%w: failed to load AWS configuration: %w", errs.ErrConfiguration, err)
	}
	return cfg, nil
}

// NewClients builds every service client from cfg.
func NewClients(cfg aws.Config) *Clients {
	return &Clients{
		EC2:     ec2.NewFromConfig(cfg),
		SSM:     ssm.NewFromConfig(cfg),
		Route53: route53.NewFromConfig(cfg),
		S3:      s3.NewFromConfig(cfg),
	}
}
