// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

/*
Package core runs participants on separate goroutines and forces them through
a fixed sequence of hand-offs, so that interleavings which would otherwise be
racy become deterministic and repeatable.

# Coordination group

Coordinated participants of one Coordinator share a mutex and a condition.
A participant holds the mutex for its entire body and releases it only while
parked inside YieldControl. At most one coordinated participant therefore
executes at any instant.

YieldControl signals the condition, waking a peer parked at a coordination
point, and waits on it. Two participants calling YieldControl alternate:

	[bob]   read seats           // bob holds the mutex
	[bob]   p.YieldControl()     // signal (nobody parked), wait
	[alice] read seats           // alice acquired the mutex
	[alice] p.YieldControl()     // signal bob, wait
	[bob]   write seats          // bob reacquired the mutex
	[bob]   return nil           // signal alice, release the mutex
	[alice] write seats

# Start order

StartInOrder spawns participants one at a time and does not spawn the next one
before the previous participant passed its startup handshake, i.e. acquired
the mutex (when coordinated) and walked through its startup Gate. This fixes
who executes first up to the first coordination point.

# Failures

A body fails by returning an error or panicking. The error is captured on the
participant and every other participant is allowed to finish: their remaining
coordination points become no-ops and parked participants are woken. Errors
are never returned to the goroutine that started the participants; use
Outcome.

Errors listed in Spec.RetryOn replay the body from the top. Coordination
points cleared by an earlier attempt are skipped on replay; everything else in
the body runs again.

# Interruption

Goroutines cannot be killed. WaitForCompletion and Close interrupt live
participants instead: the injected error cancels the body context and is
observed at the next blocking point of the participant (YieldControl,
WaitFor, WaitUntil or acquiring the mutex), which unwinds the body and
records the error as its outcome.
*/
package core
