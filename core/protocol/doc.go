// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the hioload-mq stream wire protocol shared by tcp:// and ipc://.
//
// Includes:
//   - Frame encoding/decoding with length escape and size limits
//   - Greeting exchanged as the first command frame on every connection
//   - Socket type compatibility rules used during the handshake
package protocol
