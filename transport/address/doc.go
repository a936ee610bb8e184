// Author: momentics <momentics@gmail.com>

// Package address resolves endpoint strings into socket addresses.
//
// Accepted forms for interface resolution:
//   - "*:<port>"            wildcard address of the selected family
//   - "<nic>:<port>"        first address of a named network interface
//   - "<literal>:<port>"    numeric IPv4 or IPv6 address, no DNS lookups
//
// Hostname resolution additionally consults DNS. Local paths resolve to
// unix domain addresses. Platform-dependent steps are strategies selected at
// build time; see nic_*.go, local_*.go and sockaddr_*.go.
package address
