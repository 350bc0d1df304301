// Package alerts evaluates run-outcome rules after every collector job and
// delivers webhook notifications to Teams, Slack or generic HTTP targets when
// a rule fires or resolves.
package alerts
