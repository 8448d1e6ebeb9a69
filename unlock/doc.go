// Package unlock decides whether a product install is authorized to run.
//
// Install with:
//
//	go get github.com/DISTRHO/DISTRHO/unlock
//
// It supports two unlock paths, both authenticated by the same Ed25519
// product key:
//
//   - Offline, from a signed key file the user pastes or drops in
//   - Online, via a challenge/response exchange with the unlock server
//
// # Quick Start
//
// Hold one Status per product install and gate features on IsUnlocked:
//
//	cfg := &unlock.ProductConfig{ID: "my-synth", Key: productPublicKey}
//	status := unlock.NewStatus(cfg)
//	status.Load(savedState) // empty string on first run
//
//	if !status.IsUnlocked() {
//	    result := status.AttemptWebserverUnlock(ctx, email, password)
//	    if result.Succeeded {
//	        savedState = status.Save() // persist in the host's settings
//	    }
//	}
//
// # Offline (air-gapped)
//
// Machines without internet access unlock from key-file text instead:
//
//	if status.ApplyKeyFile(keyFileText) {
//	    savedState = status.Save()
//	}
//
// This is a deterrent against casual piracy, not DRM: a motivated
// attacker with a debugger wins. The design raises the cost of cracking,
// it does not guarantee prevention.
package unlock
