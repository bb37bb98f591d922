// Package main synthesizes the demo storage stack and the disaster-recovery
// product service, with AwsSolutions checks applied across the app.
package main

import (
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/cdklabs/cdk-nag-go/cdknag/v2"

	"dynamodb-disaster-recovery/internal/stacks"
)

func main() {
	defer jsii.Close()

	app := awscdk.NewApp(nil)

	awscdk.Aspects_Of(app).Add(cdknag.NewAwsSolutionsChecks(&cdknag.NagPackProps{
		Verbose: jsii.Bool(true),
	}), nil)

	demoStorage := stacks.NewDemoStorageStack(app, "DemoStorageStack", &stacks.DemoStorageStackProps{
		StackProps: awscdk.StackProps{Env: env()},
	})

	disasterRecovery := stacks.NewDisasterRecoveryStack(app, "DisasterRecoveryProductService", &stacks.DisasterRecoveryStackProps{
		StackProps: awscdk.StackProps{Env: env()},
	})

	stacks.ApplyNagSuppressions(demoStorage, disasterRecovery)

	app.Synth(nil)
}

// env resolves the target account and region from the CLI environment.
func env() *awscdk.Environment {
	return &awscdk.Environment{
		Account: jsii.String(os.Getenv("CDK_DEFAULT_ACCOUNT")),
		Region:  jsii.String(os.Getenv("CDK_DEFAULT_REGION")),
	}
}
