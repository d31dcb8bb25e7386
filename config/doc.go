// Package config provides the Configuration Store: provider and API records
// loaded once per run and resolved by (provider, api) name.
//
// Records live on disk under <dir>/providers/<provider>/. An optional
// provider.yaml holds provider defaults and every other *.yaml file holds one
// API, named after the file stem:
//
//	config/
//	  providers/
//	    slack/
//	      provider.yaml
//	      web_api.yaml
//
// Example API record:
//
//	name: Slack Web API
//	spec: https://api.slack.com/specs/openapi/v2/slack_web.json
//	base_url: https://slack.com/api
//	auth_type: bearer
//	auth:
//	  token_env: SLACK_BOT_TOKEN
//	quirks: [strip_token_param]
//
// [Store.Resolve] merges provider defaults under the API record and validates
// the result. The store is immutable after load and safe for concurrent use.
package config
