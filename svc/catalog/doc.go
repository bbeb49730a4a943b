// Package catalog owns courses, lessons and subscription plans.
//
// Courses and plans share the Tier ordering free < basic < premium; a plan
// unlocks every course whose tier does not rank above its own. Plans are
// defined in YAML (plans.yaml is built in) and synchronised into Postgres at
// start-up so that subscriptions can reference them by id.
package catalog
