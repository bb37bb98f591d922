package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsapigateway"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsbackup"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// DefaultReplicaRegion is where the product table's single replica lives.
const DefaultReplicaRegion = "us-west-2"

// functionTableActions is the complete set of actions granted to the
// function's role, scoped to the product table ARN. The repository's
// DynamoDBClient interface mirrors the DynamoDB subset.
var functionTableActions = []string{
	"logs:CreateLogGroup",
	"logs:CreateLogStream",
	"logs:PutLogEvents",
	"dynamodb:PutItem",
	"dynamodb:GetItem",
	"dynamodb:UpdateItem",
	"dynamodb:DeleteItem",
	"dynamodb:Scan",
	"dynamodb:CreateBackup",
}

// apiRoute describes one REST route proxied to the product function. Query
// parameters are declared but never required; the function validates input.
type apiRoute struct {
	path        string
	method      string
	queryParams []string
}

var apiRoutes = []apiRoute{
	{path: "addProduct", method: "POST"},
	{path: "getProduct", method: "GET", queryParams: []string{"product_id"}},
	{path: "getProducts", method: "GET", queryParams: []string{"limit", "lastEvaluatedKey"}},
	{path: "updateProduct", method: "PUT"},
	{path: "deleteProduct", method: "DELETE", queryParams: []string{"product_id"}},
}

// DisasterRecoveryStackProps configures the product service stack.
type DisasterRecoveryStackProps struct {
	awscdk.StackProps
	// ReplicaRegion overrides DefaultReplicaRegion.
	ReplicaRegion *string
	// Code overrides the container image. Defaults to an image asset built
	// from the repository Dockerfile; tests substitute an ECR reference so
	// synthesis does not shell out to Docker.
	Code awslambda.DockerImageCode
}

// NewDisasterRecoveryStack declares the replicated product table, the
// container function that serves it, the backup plan, the scheduled
// invocation, and the REST API.
func NewDisasterRecoveryStack(scope constructs.Construct, id string, props *DisasterRecoveryStackProps) awscdk.Stack {
	var sprops awscdk.StackProps
	replicaRegion := DefaultReplicaRegion
	var code awslambda.DockerImageCode
	if props != nil {
		sprops = props.StackProps
		if props.ReplicaRegion != nil {
			replicaRegion = *props.ReplicaRegion
		}
		code = props.Code
	}
	if code == nil {
		code = awslambda.DockerImageCode_FromImageAsset(jsii.String("."), &awslambda.AssetImageCodeProps{
			Exclude: jsii.Strings("cdk.out"),
		})
	}
	stack := awscdk.NewStack(scope, &id, &sprops)

	// The table keeps the default removal policy: it is retained on stack
	// destroy unless deliberately overridden elsewhere.
	table := awsdynamodb.NewTable(stack, jsii.String("ProductTable"), &awsdynamodb.TableProps{
		PartitionKey: &awsdynamodb.Attribute{
			Name: jsii.String("product_id"),
			Type: awsdynamodb.AttributeType_STRING,
		},
		BillingMode: awsdynamodb.BillingMode_PAY_PER_REQUEST,
		PointInTimeRecoverySpecification: &awsdynamodb.PointInTimeRecoverySpecification{
			PointInTimeRecoveryEnabled: jsii.Bool(true),
		},
		ReplicationRegions: jsii.Strings(replicaRegion),
	})

	fn := awslambda.NewDockerImageFunction(stack, jsii.String("ProductFunction"), &awslambda.DockerImageFunctionProps{
		Code:         code,
		Architecture: awslambda.Architecture_ARM_64(),
		Timeout:      awscdk.Duration_Seconds(jsii.Number(60)),
		Environment: &map[string]*string{
			"TABLE_NAME": table.TableName(),
		},
	})

	fn.AddToRolePolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Effect:    awsiam.Effect_ALLOW,
		Actions:   jsii.Strings(functionTableActions...),
		Resources: &[]*string{table.TableArn()},
	}))

	addBackupPlan(stack, table)
	addFunctionSchedule(stack, fn)
	addProductAPI(stack, fn)

	return stack
}

// addBackupPlan declares the daily 11:00 UTC backup with 30-day retention and
// binds the product table to it.
func addBackupPlan(stack awscdk.Stack, table awsdynamodb.Table) {
	plan := awsbackup.NewBackupPlan(stack, jsii.String("ProductBackupPlan"), &awsbackup.BackupPlanProps{
		BackupPlanName: jsii.String("ProductTableBackupPlan"),
	})

	plan.AddRule(awsbackup.NewBackupPlanRule(&awsbackup.BackupPlanRuleProps{
		RuleName: jsii.String("DailyProductTableBackup"),
		ScheduleExpression: awsevents.Schedule_Cron(&awsevents.CronOptions{
			Minute: jsii.String("0"),
			Hour:   jsii.String("11"),
		}),
		DeleteAfter: awscdk.Duration_Days(jsii.Number(30)),
	}))

	plan.AddSelection(jsii.String("ProductTableSelection"), &awsbackup.BackupSelectionOptions{
		Resources: &[]awsbackup.BackupResource{
			awsbackup.BackupResource_FromDynamoDbTable(table),
		},
	})
}

// addFunctionSchedule declares the daily invocation of the product function
// with an empty payload, which the function treats as a backup request.
//
// TODO: confirm the intended ordering with the service owners. This rule
// fires at 10:00 UTC, one hour BEFORE the 11:00 backup plan rule, although it
// is named as the post-backup invocation.
func addFunctionSchedule(stack awscdk.Stack, fn awslambda.IFunction) {
	rule := awsevents.NewRule(stack, jsii.String("PostBackupInvokeRule"), &awsevents.RuleProps{
		Description: jsii.String("Invokes the product function daily, independent of the backup plan"),
		Schedule: awsevents.Schedule_Cron(&awsevents.CronOptions{
			Minute: jsii.String("0"),
			Hour:   jsii.String("10"),
		}),
	})
	rule.AddTarget(awseventstargets.NewLambdaFunction(fn, &awseventstargets.LambdaFunctionProps{}))
}

// addProductAPI declares the five product routes, all proxied to the same
// function through one shared integration.
func addProductAPI(stack awscdk.Stack, fn awslambda.IFunction) {
	api := awsapigateway.NewRestApi(stack, jsii.String("ProductApi"), &awsapigateway.RestApiProps{
		RestApiName: jsii.String("Product Service"),
		Description: jsii.String("Product CRUD endpoints backed by the product function"),
	})

	integration := awsapigateway.NewLambdaIntegration(fn, &awsapigateway.LambdaIntegrationOptions{
		RequestTemplates: &map[string]*string{
			"application/json": jsii.String(`{"body": "$input.json('$')"}`),
		},
	})

	for _, route := range apiRoutes {
		resource := api.Root().AddResource(jsii.String(route.path), nil)

		var options *awsapigateway.MethodOptions
		if len(route.queryParams) > 0 {
			params := map[string]*bool{}
			for _, p := range route.queryParams {
				params["method.request.querystring."+p] = jsii.Bool(false)
			}
			options = &awsapigateway.MethodOptions{RequestParameters: &params}
		}

		resource.AddMethod(jsii.String(route.method), integration, options)
	}

	awscdk.NewCfnOutput(stack, jsii.String("ProductApiUrl"), &awscdk.CfnOutputProps{
		Value:       api.Url(),
		Description: jsii.String("Base URL of the product API"),
	})
}
