package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/cdklabs/cdk-nag-go/cdknag/v2"
)

// ruleSuppression marks one AwsSolutions rule as accepted risk.
type ruleSuppression struct {
	ID     string
	Reason string
}

// pathSuppressions binds suppressions to one synthesized resource path,
// relative to the stack root. Paths are provisioning-engine-internal and may
// need updating when the CDK library changes how it names children.
type pathSuppressions struct {
	Path            string
	ApplyToChildren bool
	Rules           []ruleSuppression
}

var demoStorageSuppressions = []pathSuppressions{
	{
		Path: "/DemoBucket/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-S1", Reason: "Demo bucket; server access logging adds cost without value here"},
		},
	},
	{
		Path:            "/Custom::S3AutoDeleteObjectsCustomResourceProvider",
		ApplyToChildren: true,
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-IAM4", Reason: "Auto-delete provider role is generated by the framework"},
			{ID: "AwsSolutions-L1", Reason: "Auto-delete provider runtime is pinned by the framework"},
		},
	},
}

var disasterRecoverySuppressions = []pathSuppressions{
	{
		Path: "/ProductFunction/ServiceRole/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-IAM4", Reason: "AWSLambdaBasicExecutionRole is acceptable for this function"},
		},
	},
	{
		Path: "/ProductFunction/ServiceRole/DefaultPolicy/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-IAM5", Reason: "Policy is scoped to the product table ARN; no wildcard resources"},
		},
	},
	{
		Path:            "/@aws-cdk--aws-dynamodb.ReplicaProvider",
		ApplyToChildren: true,
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-IAM4", Reason: "Replica provider roles are generated by the framework"},
			{ID: "AwsSolutions-IAM5", Reason: "Replica provider policies are generated by the framework"},
			{ID: "AwsSolutions-L1", Reason: "Replica provider runtime is pinned by the framework"},
		},
	},
	{
		Path: "/ProductApi/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-APIG2", Reason: "Request validation happens inside the function"},
		},
	},
	{
		Path: "/ProductApi/CloudWatchRole/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-IAM4", Reason: "API Gateway push-to-CloudWatch role uses the managed policy"},
		},
	},
	{
		Path: "/ProductApi/DeploymentStage.prod/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-APIG1", Reason: "Access logging not required for this sample API"},
			{ID: "AwsSolutions-APIG3", Reason: "WAF is out of scope for this sample API"},
			{ID: "AwsSolutions-APIG6", Reason: "CloudWatch logging not enabled for this sample API"},
		},
	},
	{
		Path: "/ProductApi/Default/addProduct/POST/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-APIG4", Reason: "Open sample endpoint; no authorizer by design decision of the service"},
			{ID: "AwsSolutions-COG4", Reason: "Cognito is not used by this API"},
		},
	},
	{
		Path: "/ProductApi/Default/getProduct/GET/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-APIG4", Reason: "Open sample endpoint; no authorizer by design decision of the service"},
			{ID: "AwsSolutions-COG4", Reason: "Cognito is not used by this API"},
		},
	},
	{
		Path: "/ProductApi/Default/getProducts/GET/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-APIG4", Reason: "Open sample endpoint; no authorizer by design decision of the service"},
			{ID: "AwsSolutions-COG4", Reason: "Cognito is not used by this API"},
		},
	},
	{
		Path: "/ProductApi/Default/updateProduct/PUT/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-APIG4", Reason: "Open sample endpoint; no authorizer by design decision of the service"},
			{ID: "AwsSolutions-COG4", Reason: "Cognito is not used by this API"},
		},
	},
	{
		Path: "/ProductApi/Default/deleteProduct/DELETE/Resource",
		Rules: []ruleSuppression{
			{ID: "AwsSolutions-APIG4", Reason: "Open sample endpoint; no authorizer by design decision of the service"},
			{ID: "AwsSolutions-COG4", Reason: "Cognito is not used by this API"},
		},
	},
}

// ApplyNagSuppressions attaches the accepted-risk suppressions to both stacks.
// Call after both stacks are fully declared and before synthesis.
func ApplyNagSuppressions(demoStorage awscdk.Stack, disasterRecovery awscdk.Stack) {
	applySuppressions(demoStorage, demoStorageSuppressions)
	applySuppressions(disasterRecovery, disasterRecoverySuppressions)
}

func applySuppressions(stack awscdk.Stack, entries []pathSuppressions) {
	root := "/" + *stack.Node().Id()
	for _, entry := range entries {
		suppressions := make([]*cdknag.NagPackSuppression, 0, len(entry.Rules))
		for _, rule := range entry.Rules {
			suppressions = append(suppressions, &cdknag.NagPackSuppression{
				Id:     jsii.String(rule.ID),
				Reason: jsii.String(rule.Reason),
			})
		}
		cdknag.NagSuppressions_AddResourceSuppressionsByPath(
			stack,
			jsii.String(root+entry.Path),
			&suppressions,
			jsii.Bool(entry.ApplyToChildren),
		)
	}
}
