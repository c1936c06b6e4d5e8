package aws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/picklr-io/tfadopt/internal/ir"
	"github.com/picklr-io/tfadopt/internal/provider"
)

type lambdaAPI interface {
	GetFunction(ctx context.Context, in *lambda.GetFunctionInput, opts ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error)
	GetFunctionUrlConfig(ctx context.Context, in *lambda.GetFunctionUrlConfigInput, opts ...func(*lambda.Options)) (*lambda.GetFunctionUrlConfigOutput, error)
	GetFunctionEventInvokeConfig(ctx context.Context, in *lambda.GetFunctionEventInvokeConfigInput, opts ...func(*lambda.Options)) (*lambda.GetFunctionEventInvokeConfigOutput, error)
	GetPolicy(ctx context.Context, in *lambda.GetPolicyInput, opts ...func(*lambda.Options)) (*lambda.GetPolicyOutput, error)
	ListLayerVersions(ctx context.Context, in *lambda.ListLayerVersionsInput, opts ...func(*lambda.Options)) (*lambda.ListLayerVersionsOutput, error)
}

const lambdaAbsenceCode = "ResourceNotFoundException"

func (p *Provider) lambdaResolvers() map[string]provider.ResolveFunc {
	return map[string]provider.ResolveFunc{
		"aws_lambda_function":            p.resolveLambdaFunction,
		"aws_lambda_function_url":        p.resolveLambdaFunctionURL,
		"aws_lambda_event_invoke_config": p.resolveLambdaEventInvokeConfig,
		"aws_lambda_permission":          p.resolveLambdaPermission,
		"aws_lambda_layer_version":       p.resolveLambdaLayerVersion,
	}
}

func (p *Provider) resolveLambdaFunction(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("function_name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	if _, err := p.lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: &name}); err != nil {
		return "", notFoundOr(err, "getting function", lambdaAbsenceCode)
	}
	return name, nil
}

func (p *Provider) resolveLambdaFunctionURL(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("function_name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	_, err := p.lambda.GetFunctionUrlConfig(ctx, &lambda.GetFunctionUrlConfigInput{FunctionName: &name})
	if err != nil {
		return "", notFoundOr(err, "getting function url", lambdaAbsenceCode)
	}
	return name, nil
}

func (p *Provider) resolveLambdaEventInvokeConfig(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("function_name")
	if name == "" {
		return "", provider.ErrNotFound
	}
	_, err := p.lambda.GetFunctionEventInvokeConfig(ctx, &lambda.GetFunctionEventInvokeConfigInput{FunctionName: &name})
	if err != nil {
		return "", notFoundOr(err, "getting event invoke config", lambdaAbsenceCode)
	}
	return name, nil
}

// resolveLambdaPermission scans the function's resource policy for the
// planned statement ID and imports as "function/statement_id".
func (p *Provider) resolveLambdaPermission(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("function_name")
	sid := change.AfterString("statement_id")
	if name == "" || sid == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.lambda.GetPolicy(ctx, &lambda.GetPolicyInput{FunctionName: &name})
	if err != nil {
		return "", notFoundOr(err, "getting function policy", lambdaAbsenceCode)
	}

	var policy struct {
		Statement []struct {
			Sid string `json:"Sid"`
		} `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(aws.ToString(out.Policy)), &policy); err != nil {
		return "", fmt.Errorf("parsing function policy: %w", err)
	}
	for _, st := range policy.Statement {
		if st.Sid == sid {
			return name + "/" + sid, nil
		}
	}
	return "", provider.ErrNotFound
}

// resolveLambdaLayerVersion imports the latest published version ARN of
// the planned layer name.
func (p *Provider) resolveLambdaLayerVersion(ctx context.Context, change *ir.ResourceChange) (string, error) {
	name := change.AfterString("layer_name")
	if name == "" {
		return "", provider.ErrNotFound
	}

	out, err := p.lambda.ListLayerVersions(ctx, &lambda.ListLayerVersionsInput{
		LayerName: &name,
		MaxItems:  aws.Int32(1),
	})
	if err != nil {
		return "", notFoundOr(err, "listing layer versions", lambdaAbsenceCode)
	}
	if len(out.LayerVersions) == 0 {
		return "", provider.ErrNotFound
	}
	return aws.ToString(out.LayerVersions[0].LayerVersionArn), nil
}
