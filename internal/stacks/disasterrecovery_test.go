package stacks

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecr"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/require"
)

// newDisasterRecoveryApp builds the stack with the function image taken from
// a fixed ECR reference, so synthesis never shells out to Docker.
func newDisasterRecoveryApp(id string) (awscdk.App, awscdk.Stack) {
	app := awscdk.NewApp(nil)
	support := awscdk.NewStack(app, jsii.String(id+"Support"), nil)
	handlerRepo := awsecr.Repository_FromRepositoryArn(support, jsii.String("HandlerRepo"),
		jsii.String("arn:aws:ecr:us-east-1:111122223333:repository/product-handler"))

	stack := NewDisasterRecoveryStack(app, id, &DisasterRecoveryStackProps{
		Code: awslambda.DockerImageCode_FromEcr(handlerRepo, nil),
	})
	return app, stack
}

func synthDisasterRecovery(t *testing.T) assertions.Template {
	t.Helper()
	_, stack := newDisasterRecoveryApp("ProductServiceTest")
	return assertions.Template_FromStack(stack, nil)
}

func TestProductTableSchema(t *testing.T) {
	template := synthDisasterRecovery(t)

	template.ResourceCountIs(jsii.String("AWS::DynamoDB::Table"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::DynamoDB::Table"), map[string]interface{}{
		"KeySchema": []interface{}{
			map[string]interface{}{"AttributeName": "product_id", "KeyType": "HASH"},
		},
		"AttributeDefinitions": []interface{}{
			map[string]interface{}{"AttributeName": "product_id", "AttributeType": "S"},
		},
		"BillingMode": "PAY_PER_REQUEST",
		"PointInTimeRecoverySpecification": map[string]interface{}{
			"PointInTimeRecoveryEnabled": true,
		},
	})
}

func TestProductTableHasExactlyOneReplica(t *testing.T) {
	template := synthDisasterRecovery(t)

	template.ResourceCountIs(jsii.String("Custom::DynamoDBReplica"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("Custom::DynamoDBReplica"), map[string]interface{}{
		"Region": DefaultReplicaRegion,
	})
}

func TestFunctionRoleGrantsExactlyTheTableActions(t *testing.T) {
	template := synthDisasterRecovery(t)

	policies := template.FindResources(jsii.String("AWS::IAM::Policy"), nil)
	require.NotNil(t, policies)

	found := false
	for _, resource := range *policies {
		doc, ok := (*resource)["Properties"].(map[string]interface{})["PolicyDocument"].(map[string]interface{})
		require.True(t, ok)
		statements, ok := doc["Statement"].([]interface{})
		require.True(t, ok)

		for _, raw := range statements {
			statement := raw.(map[string]interface{})
			actions, ok := statement["Action"].([]interface{})
			if !ok {
				continue
			}
			got := make([]string, 0, len(actions))
			for _, a := range actions {
				got = append(got, a.(string))
			}
			if len(got) != len(functionTableActions) {
				continue
			}
			require.ElementsMatch(t, functionTableActions, got)
			// Scoped to the table ARN only, never a wildcard.
			require.NotEqual(t, "*", statement["Resource"])
			require.IsType(t, map[string]interface{}{}, statement["Resource"],
				"Resource should be a Fn::GetAtt reference to the table ARN")
			found = true
		}
	}
	require.True(t, found, "no policy statement grants the function's table actions")
}

func TestBackupPlanRetentionAndSchedule(t *testing.T) {
	template := synthDisasterRecovery(t)

	template.ResourceCountIs(jsii.String("AWS::Backup::BackupPlan"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::Backup::BackupPlan"), map[string]interface{}{
		"BackupPlan": assertions.Match_ObjectLike(&map[string]interface{}{
			"BackupPlanRule": assertions.Match_ArrayWith(&[]interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"ScheduleExpression": "cron(0 11 * * ? *)",
					"Lifecycle": map[string]interface{}{
						"DeleteAfterDays": 30,
					},
				}),
			}),
		}),
	})

	template.ResourceCountIs(jsii.String("AWS::Backup::BackupSelection"), jsii.Number(1))
}

func TestFunctionScheduleFiresOneHourBeforeBackup(t *testing.T) {
	template := synthDisasterRecovery(t)

	// The invocation rule runs at 10:00 UTC, one hour BEFORE the 11:00
	// backup plan rule. The naming suggests post-backup intent; the hour
	// ordering is asserted as deployed so a reorder shows up as a diff.
	template.HasResourceProperties(jsii.String("AWS::Events::Rule"), map[string]interface{}{
		"ScheduleExpression": "cron(0 10 * * ? *)",
		"State":              "ENABLED",
	})
}

func TestFunctionTimeoutAndEnvironment(t *testing.T) {
	template := synthDisasterRecovery(t)

	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]interface{}{
		"PackageType": "Image",
		"Timeout":     60,
		"Environment": map[string]interface{}{
			"Variables": map[string]interface{}{
				"TABLE_NAME": assertions.Match_AnyValue(),
			},
		},
	})
}

func TestAllRoutesShareOneIntegrationTarget(t *testing.T) {
	template := synthDisasterRecovery(t)

	methods := template.FindResources(jsii.String("AWS::ApiGateway::Method"), nil)
	require.NotNil(t, methods)
	require.Len(t, *methods, 5)

	var firstURI interface{}
	seenMethods := map[string]bool{}
	for _, resource := range *methods {
		props := (*resource)["Properties"].(map[string]interface{})
		seenMethods[props["HttpMethod"].(string)] = true

		integration, ok := props["Integration"].(map[string]interface{})
		require.True(t, ok)
		if firstURI == nil {
			firstURI = integration["Uri"]
		} else {
			require.Equal(t, firstURI, integration["Uri"], "all routes must target the same function")
		}

		// Declared query parameters are all optional.
		if params, ok := props["RequestParameters"].(map[string]interface{}); ok {
			for name, required := range params {
				require.Equal(t, false, required, "parameter %s must not be required", name)
			}
		}
	}
	require.Equal(t, map[string]bool{"POST": true, "GET": true, "PUT": true, "DELETE": true}, seenMethods)
}

func TestRouteQueryParameters(t *testing.T) {
	template := synthDisasterRecovery(t)

	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Method"), map[string]interface{}{
		"HttpMethod": "GET",
		"RequestParameters": map[string]interface{}{
			"method.request.querystring.product_id": false,
		},
	})
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Method"), map[string]interface{}{
		"HttpMethod": "GET",
		"RequestParameters": map[string]interface{}{
			"method.request.querystring.limit":            false,
			"method.request.querystring.lastEvaluatedKey": false,
		},
	})
	template.HasResourceProperties(jsii.String("AWS::ApiGateway::Method"), map[string]interface{}{
		"HttpMethod": "DELETE",
		"RequestParameters": map[string]interface{}{
			"method.request.querystring.product_id": false,
		},
	})
}

func TestApiURLIsSurfacedAsOutput(t *testing.T) {
	template := synthDisasterRecovery(t)

	template.HasOutput(jsii.String("ProductApiUrl"), map[string]interface{}{
		"Value": assertions.Match_AnyValue(),
	})
}

func TestSynthesisIsDeterministic(t *testing.T) {
	templates := make([]map[string]interface{}, 2)
	for i := range templates {
		_, stack := newDisasterRecoveryApp("ProductServiceTest")
		templates[i] = *assertions.Template_FromStack(stack, nil).ToJSON()
	}
	require.Equal(t, templates[0], templates[1], "re-synthesis must be byte-identical")
}
