// Package gate maps audit risk levels onto CI exit codes and monitoring alerts.
package gate
