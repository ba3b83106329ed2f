package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kodflow/gameops/src/internal/domain/entity"
	"github.com/kodflow/gameops/src/internal/domain/errs"
	"github.com/kodflow/gameops/src/internal/infrastructure/cloud"
	"github.com/kodflow/gameops/src/internal/infrastructure/command"
	"github.com/kodflow/gameops/src/internal/infrastructure/console"
	"github.com/kodflow/gameops/src/internal/infrastructure/system"
)

// Llama deployment settings.
const (
	LlamaNamespace      = "llama"
	LlamaLoginServer    = "ghcr.io"
	LlamaRegistry       = "ghcr.io/coilysiren/llama"
	LlamaUsername       = "coilysiren/llama"
	LlamaPullSecret     = "docker-registry"
	LlamaManifest       = "llama/deploy.yml"
	CertManagerVersion  = "v1.12.16"
	certManagerManifest = "https://github.com/cert-manager/cert-manager/releases/download/%s/cert-manager.yaml"
)

// Kubernetes drives kubectl and docker for the cluster tasks.
type Kubernetes struct {
	runner  system.Runner
	secrets SecretGetter
}

// NewKubernetes creates the cluster task set.
func NewKubernetes(runner system.Runner, secrets SecretGetter) *Kubernetes {
	return &Kubernetes{runner: runner, secrets: secrets}
}

// ensureNamespace creates the namespace. An existing namespace only warns.
func (k *Kubernetes) ensureNamespace(ctx context.Context, name string) error {
	err := k.runner.Stream(ctx, command.New("kubectl", "create", "namespace", name), nil, nil)
	if err == nil {
		return nil
	}
	if errors.Is(err, errs.ErrCommand) {
		console.Warn("namespace %s not created, continuing", name)
		return nil
	}
	return err
}

type secretManifest struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   manifestMetadata  `yaml:"metadata"`
	Type       string            `yaml:"type"`
	Data       map[string]string `yaml:"data"`
}

type manifestMetadata struct {
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
}

type dockerAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Auth     string `json:"auth"`
}

// RegistrySecret renders the image pull secret for server as a Kubernetes manifest.
func RegistrySecret(name, namespace, server, username string, password entity.SecretValue) ([]byte, error) {
	auth := dockerAuth{
		Username: username,
		Password: password.Reveal(),
		Auth:     base64.StdEncoding.EncodeToString([]byte(username + ":" + password.Reveal())),
	}
	cfg, err := json.Marshal(map[string]map[string]dockerAuth{"auths": {server: auth}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode registry auth: %w", err)
	}
	return yaml.Marshal(secretManifest{
		APIVersion: "v1",
		Kind:       "Secret",
		Metadata:   manifestMetadata{Name: name, Namespace: namespace},
		Type:       "kubernetes.io/dockerconfigjson",
		Data:       map[string]string{".dockerconfigjson": base64.StdEncoding.EncodeToString(cfg)},
	})
}

// DeployLlamaSecrets logs docker into the registry and applies the image pull secret.
// The token only travels over standard input.
func (k *Kubernetes) DeployLlamaSecrets(ctx context.Context) error {
	token, err := k.secrets.Get(ctx, cloud.GithubPATParam)
	if err != nil {
		return err
	}
	if err := k.ensureNamespace(ctx, LlamaNamespace); err != nil {
		return err
	}

	console.Step("Logging in to %s", LlamaLoginServer)
	login := command.New("docker", "login", LlamaLoginServer, "-u", LlamaUsername, "--password-stdin").
		WithStdin([]byte(token.Reveal() + "\n"))
	if err := k.runner.Stream(ctx, login, nil, nil); err != nil {
		return err
	}

	manifest, err := RegistrySecret(LlamaPullSecret, LlamaNamespace, LlamaRegistry, LlamaUsername, token)
	if err != nil {
		return err
	}
	console.Step("Applying secret %s/%s", LlamaNamespace, LlamaPullSecret)
	return k.runner.Stream(ctx, command.New("kubectl", "apply", "-f", "-").WithStdin(manifest), nil, nil)
}

// DeployLlama applies the llama manifest.
func (k *Kubernetes) DeployLlama(ctx context.Context) error {
	if err := k.ensureNamespace(ctx, LlamaNamespace); err != nil {
		return err
	}
	console.Step("Applying %s", LlamaManifest)
	return k.runner.Stream(ctx, command.New("kubectl", "apply", "-f", LlamaManifest), nil, nil)
}

// CertManager applies the pinned cert-manager release.
func (k *Kubernetes) CertManager(ctx context.Context) error {
	url := fmt.Sprintf(certManagerManifest, CertManagerVersion)
	console.Step("Applying cert-manager %s", CertManagerVersion)
	return k.runner.Stream(ctx, command.New("kubectl", "apply", "-f", url), nil, nil)
}
