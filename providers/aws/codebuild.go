package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codebuild"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type codebuildAPI interface {
	BatchGetProjects(ctx context.Context, in *codebuild.BatchGetProjectsInput, opts ...func(*codebuild.Options)) (*codebuild.BatchGetProjectsOutput, error)
	ListSourceCredentials(ctx context.Context, in *codebuild.ListSourceCredentialsInput, opts ...func(*codebuild.Options)) (*codebuild.ListSourceCredentialsOutput, error)
}

func (p *Provider) codebuildResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_codebuild_project":           p.resolveCodebuildProject,
		"aws_codebuild_source_credential": p.resolveSourceCredential,
	}
}

// resolveCodebuildProject imports the project name. BatchGetProjects does
// not error on a missing name; absence shows up as an empty Projects list.
func (p *Provider) resolveCodebuildProject(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	out, err := p.codebuild.BatchGetProjects(ctx, &codebuild.BatchGetProjectsInput{Names: []string{name}})
	if err != nil {
		return "", fmt.Errorf("getting project: %w", err)
	}
	if len(out.Projects) == 0 {
		return "", provider.ErrNotFound
	}
	return name, nil
}

// resolveSourceCredential matches on auth_type and server_type; an account
// holds at most one credential per server type, so the pair is a key.
func (p *Provider) resolveSourceCredential(ctx context.Context, change *ir.ResourceChange) (string, error) {
	authType := change.AfterString("auth_type")
	serverType := change.AfterString("server_type")
	if authType == "" || serverType == "" {
		return "", provider.ErrNotFound
	}
	out, err := p.codebuild.ListSourceCredentials(ctx, &codebuild.ListSourceCredentialsInput{})
	if err != nil {
		return "", fmt.Errorf("listing source credentials: %w", err)
	}
	for _, cred := range out.SourceCredentialsInfos {
		if string(cred.AuthType) == authType && string(cred.ServerType) == serverType {
			return aws.ToString(cred.Arn), nil
		}
	}
	return "", provider.ErrNotFound
}
