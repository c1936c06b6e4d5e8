package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type iamAPI interface {
	GetRole(ctx context.Context, in *iam.GetRoleInput, opts ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	GetUser(ctx context.Context, in *iam.GetUserInput, opts ...func(*iam.Options)) (*iam.GetUserOutput, error)
	GetGroup(ctx context.Context, in *iam.GetGroupInput, opts ...func(*iam.Options)) (*iam.GetGroupOutput, error)
	GetInstanceProfile(ctx context.Context, in *iam.GetInstanceProfileInput, opts ...func(*iam.Options)) (*iam.GetInstanceProfileOutput, error)
	GetPolicy(ctx context.Context, in *iam.GetPolicyInput, opts ...func(*iam.Options)) (*iam.GetPolicyOutput, error)
	GetRolePolicy(ctx context.Context, in *iam.GetRolePolicyInput, opts ...func(*iam.Options)) (*iam.GetRolePolicyOutput, error)
	ListAttachedRolePolicies(ctx context.Context, in *iam.ListAttachedRolePoliciesInput, opts ...func(*iam.Options)) (*iam.ListAttachedRolePoliciesOutput, error)
}

const iamAbsenceCode = "NoSuchEntity"

func (p *Provider) iamResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_iam_role":                   p.resolveIAMRole,
		"aws_iam_user":                   p.resolveIAMUser,
		"aws_iam_group":                  p.resolveIAMGroup,
		"aws_iam_instance_profile":       p.resolveInstanceProfile,
		"aws_iam_policy":                 p.resolveIAMPolicy,
		"aws_iam_role_policy":            p.resolveRolePolicy,
		"aws_iam_role_policy_attachment": p.resolveRolePolicyAttachment,
	}
}

func (p *Provider) resolveIAMRole(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	if _, err := p.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: &name}); err != nil {
		return "", notFoundOr(err, "getting role", iamAbsenceCode)
	}
	return name, nil
}

func (p *Provider) resolveIAMUser(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	if _, err := p.iam.GetUser(ctx, &iam.GetUserInput{UserName: &name}); err != nil {
		return "", notFoundOr(err, "getting user", iamAbsenceCode)
	}
	return name, nil
}

func (p *Provider) resolveIAMGroup(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	if _, err := p.iam.GetGroup(ctx, &iam.GetGroupInput{GroupName: &name}); err != nil {
		return "", notFoundOr(err, "getting group", iamAbsenceCode)
	}
	return name, nil
}

func (p *Provider) resolveInstanceProfile(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	if _, err := p.iam.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{InstanceProfileName: &name}); err != nil {
		return "", notFoundOr(err, "getting instance profile", iamAbsenceCode)
	}
	return name, nil
}

// resolveIAMPolicy imports under the policy ARN, reconstructed from the
// caller account since the plan only carries the name.
func (p *Provider) resolveIAMPolicy(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	account, err := p.accountID(ctx)
	if err != nil {
		return "", err
	}
	path := change.AfterString("path")
	if path == "" {
		path = "/"
	}
	arn := fmt.Sprintf("arn:aws:iam::%s:policy%s%s", account, path, name)

	if _, err := p.iam.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: &arn}); err != nil {
		return "", notFoundOr(err, "getting policy", iamAbsenceCode)
	}
	return arn, nil
}

func (p *Provider) resolveRolePolicy(ctx context.Context, change *ir.ResourceChange) (string, error) {
	role := change.AfterString("role")
	name := change.AfterString("name")
	if role == "" || name == "" {
		return "", provider.ErrNotFound
	}
	_, err := p.iam.GetRolePolicy(ctx, &iam.GetRolePolicyInput{RoleName: &role, PolicyName: &name})
	if err != nil {
		return "", notFoundOr(err, "getting role policy", iamAbsenceCode)
	}
	return role + ":" + name, nil
}

func (p *Provider) resolveRolePolicyAttachment(ctx context.Context, change *ir.ResourceChange) (string, error) {
	role := change.AfterString("role")
	policyARN := change.AfterString("policy_arn")
	if role == "" || policyARN == "" {
		return "", provider.ErrNotFound
	}

	pager := provider.NewPager(func(ctx context.Context, token string) ([]iamtypes.AttachedPolicy, string, bool, error) {
		in := &iam.ListAttachedRolePoliciesInput{RoleName: &role}
		if token != "" {
			in.Marker = aws.String(token)
		}
		out, err := p.iam.ListAttachedRolePolicies(ctx, in)
		if err != nil {
			if isNotFound(err, iamAbsenceCode) {
				return nil, "", false, nil
			}
			return nil, "", false, fmt.Errorf("listing attached role policies: %w", err)
		}
		return out.AttachedPolicies, aws.ToString(out.Marker), out.IsTruncated, nil
	})

	_, err := provider.FindFirst(ctx, pager, func(ap iamtypes.AttachedPolicy) bool {
		return aws.ToString(ap.PolicyArn) == policyARN
	})
	if err != nil {
		return "", err
	}
	return role + "/" + policyARN, nil
}
